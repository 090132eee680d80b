//go:build !linux

package index

import "io/fs"

// Only portable fields are recorded outside Linux.
func fillStat(m *Metadata, fi fs.FileInfo) {}
