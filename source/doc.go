// Package source supplies source files to the pipeline: it clones a
// repository, walks it for files with known source extensions and reads
// its README.
package source
