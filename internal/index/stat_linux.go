//go:build linux

package index

import (
	"io/fs"
	"syscall"
)

func fillStat(m *Metadata, fi fs.FileInfo) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}
	m.CTime = uint32(st.Ctim.Sec)
	m.CTimeNano = uint32(st.Ctim.Nsec)
	m.MTime = uint32(st.Mtim.Sec)
	m.MTimeNano = uint32(st.Mtim.Nsec)
	m.Dev = uint32(st.Dev)
	m.Ino = uint32(st.Ino)
	m.UID = st.Uid
	m.GID = st.Gid
}
