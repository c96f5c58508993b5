// Package imagefile implements capture.Host on top of image files.
//
// A Host keeps one active Document, decoded from png, jpeg, gif, bmp, tiff or
// webp. Documents are in-memory rasters: Duplicate deep-copies the pixels,
// Resize resamples with Catmull-Rom and ExportJPEG flattens onto white before
// encoding. Nothing is ever written back to the source file.
package imagefile
