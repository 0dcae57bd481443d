// Package archive expands zip, gzip, tar and gzip-compressed tar files into a
// folder named after the archive. Entries never overwrite existing files and
// never escape the target folder.
package archive
