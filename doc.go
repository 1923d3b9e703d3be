package geotag

// This package defines common methods and operations for geotagging batches of photos. Common operations include: gathering files from a bucket, converting proprietary camera formats, compressing images, writing GPS (EXIF) metadata and bundling processed files in to a single downloadable archive.
