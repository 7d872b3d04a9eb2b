// Package migrations creates new migration file stubs. Generated filenames
// carry a zero-padded numeric prefix one past the highest prefix already in
// the directory, so every new file sorts lexically after the existing set.
package migrations
