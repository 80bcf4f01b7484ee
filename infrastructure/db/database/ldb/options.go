package ldb

import "github.com/syndtr/goleveldb/leveldb/opt"

// Options returns the leveldb options used when opening a database with
// the given cache size in MiB. It's defined as a variable for the sake of
// testing.
var Options = func(cacheSizeMiB int) *opt.Options {
	return &opt.Options{
		Compression:            opt.NoCompression,
		BlockCacheCapacity:     cacheSizeMiB * opt.MiB,
		WriteBuffer:            (cacheSizeMiB / 2) * opt.MiB,
		DisableSeeksCompaction: true,
	}
}
