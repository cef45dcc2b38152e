package engine

import (
	"archive/zip"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // zone database for hosts without one
	"unicode"

	"github.com/tartampluch/bday/internal/config"
)

// UnknownTimezoneError is returned when a zone name matches nothing in the IANA database.
type UnknownTimezoneError struct {
	Name string
}

func (e *UnknownTimezoneError) Error() string {
	return fmt.Sprintf("%s: %q", config.ErrUnknownTimezone, e.Name)
}

// zoneDirs are the usual locations of the system zoneinfo tree.
var zoneDirs = []string{
	"/usr/share/zoneinfo",
	"/usr/share/lib/zoneinfo",
	"/usr/lib/locale/TZ",
	"/etc/zoneinfo",
}

var (
	zoneIndexOnce sync.Once
	zoneIndex     map[string]string
)

// LookupZone resolves an IANA zone name, ignoring case. The returned location
// carries the canonical spelling whenever the zone database can be listed.
// "Local" is refused: an entry without a zone already means the viewer's zone.
func LookupZone(name string) (*time.Location, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || strings.EqualFold(trimmed, "Local") {
		return nil, &UnknownTimezoneError{Name: name}
	}
	if strings.EqualFold(trimmed, "UTC") {
		return time.UTC, nil
	}

	zoneIndexOnce.Do(func() {
		zoneIndex = buildZoneIndex()
	})
	if canonical, ok := zoneIndex[strings.ToLower(trimmed)]; ok {
		if loc, err := time.LoadLocation(canonical); err == nil {
			return loc, nil
		}
	}

	if loc, err := time.LoadLocation(trimmed); err == nil {
		return loc, nil
	}
	return nil, &UnknownTimezoneError{Name: name}
}

// buildZoneIndex maps lower-cased zone names to their canonical spelling, using
// every zoneinfo source present on this machine.
func buildZoneIndex() map[string]string {
	index := make(map[string]string)

	for _, dir := range zoneDirs {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		addZoneNames(index, os.DirFS(dir))
	}

	if root := runtime.GOROOT(); root != "" {
		zipPath := filepath.Join(root, "lib", "time", "zoneinfo.zip")
		if zr, err := zip.OpenReader(zipPath); err == nil {
			addZoneNames(index, zr)
			_ = zr.Close()
		} else {
			slog.Debug(config.MsgZoneSource,
				config.LogKeyComponent, config.CompZone,
				config.LogKeyFile, zipPath,
				config.LogKeyError, err)
		}
	}

	slog.Debug(config.MsgZoneIndex,
		config.LogKeyComponent, config.CompZone,
		config.LogKeyCount, len(index))
	return index
}

// addZoneNames walks fsys and records every file that looks like a zone.
// Zone names are made of segments starting with an upper-case letter
// (Europe/Paris, Etc/GMT+1, EST5EDT); helper files such as zone.tab,
// posixrules or the posix/ and right/ mirrors are skipped.
func addZoneNames(index map[string]string, fsys fs.FS) {
	_ = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if p == "." {
			return nil
		}
		if d.IsDir() {
			if p == "posix" || p == "right" || !zoneSegment(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		for _, seg := range strings.Split(p, "/") {
			if !zoneSegment(seg) {
				return nil
			}
		}
		name := path.Clean(p)
		if _, dup := index[strings.ToLower(name)]; !dup {
			index[strings.ToLower(name)] = name
		}
		return nil
	})
}

func zoneSegment(seg string) bool {
	if seg == "" || strings.Contains(seg, ".") {
		return false
	}
	r := []rune(seg)[0]
	return unicode.IsUpper(r)
}
