package constants

import "os"

// DirPermStandard is the standard directory permission (owner rwx, group r-x).
const DirPermStandard os.FileMode = 0750

// FilePermReadWrite is the standard file permission (owner rw, group r, other r).
const FilePermReadWrite os.FileMode = 0644
