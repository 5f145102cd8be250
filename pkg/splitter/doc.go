// Package splitter provides the text segmentation engine used to break a
// manuscript into ordered segments.
//
// It includes:
//   - Four splitting strategies: character count, chapter keyword, ratio
//     and fixed count
//   - Rune accurate character offsets alongside UTF-8 byte offsets
//   - Parameter validation with typed errors
//
// The engine is pure: it never touches the filesystem. Writing segment
// files is the job of the services layer.
package splitter
