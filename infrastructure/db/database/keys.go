package database

import (
	"bytes"
	"encoding/hex"
)

var separator = []byte("/")

// Key combines a bucket path prefix with a key suffix.
type Key struct {
	prefix, suffix []byte
}

// Bytes returns the prefix concatenated with the suffix.
func (k *Key) Bytes() []byte {
	keyBytes := make([]byte, len(k.prefix)+len(k.suffix))
	copy(keyBytes, k.prefix)
	copy(keyBytes[len(k.prefix):], k.suffix)
	return keyBytes
}

func (k *Key) String() string {
	return string(k.prefix) + hex.EncodeToString(k.suffix)
}

// Suffix returns the key part of the key, without its bucket path.
func (k *Key) Suffix() []byte {
	return k.suffix
}

// newKey returns a new key composed of the given prefix and suffix.
func newKey(prefix, suffix []byte) *Key {
	return &Key{prefix: prefix, suffix: suffix}
}

// Bucket is a path of nested bucket names used to build keys and
// prefix-based cursors.
type Bucket struct {
	path [][]byte
}

// MakeBucket creates a new Bucket from the given path.
func MakeBucket(path ...[]byte) *Bucket {
	return &Bucket{path: path}
}

// Bucket returns the sub-bucket named bucketBytes.
func (b *Bucket) Bucket(bucketBytes []byte) *Bucket {
	newPath := make([][]byte, len(b.path)+1)
	copy(newPath, b.path)
	newPath[len(b.path)] = bucketBytes
	return MakeBucket(newPath...)
}

// Key returns key inside the bucket.
func (b *Bucket) Key(key []byte) *Key {
	return newKey(b.Path(), key)
}

// Path returns the full path of the bucket, terminated by the separator.
func (b *Bucket) Path() []byte {
	bucketPath := bytes.Join(b.path, separator)
	fullPath := make([]byte, len(bucketPath)+len(separator))
	copy(fullPath, bucketPath)
	copy(fullPath[len(bucketPath):], separator)
	return fullPath
}
