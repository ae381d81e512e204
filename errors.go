package tinycdn

import "github.com/pkg/errors"

// errConfigMissingDirs is returned by New when Source or Dest is nil.
// Per spec.md §7, an invalid source or destination directory is fatal and
// prevents service start.
var errConfigMissingDirs = errors.New("tinycdn: Source and Dest must both be set")

// errDirectoryRequest marks a URL that resolved to a directory request
// with autoIndex disabled (spec.md §4.2, §7).
var errDirectoryRequest = errors.New("tinycdn: directory request")

// errNotFile marks a stat that succeeded but named something other than a
// regular file (spec.md §4.6 step 4, "On success but !isFile").
var errNotFile = errors.New("tinycdn: not a regular file")
