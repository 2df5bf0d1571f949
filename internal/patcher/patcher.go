// Package patcher rewrites a freshly-extracted Qt installation's baked-in
// build prefix to point at its actual install location, the Go
// counterpart to aqt/updater.py's Updater class.
package patcher

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"golang.org/x/exp/mmap"
	"github.com/google/renameio"

	"github.com/goaqt/aqt/internal/aqterrors"
	"github.com/goaqt/aqt/internal/aqtlog"
)

var log = aqtlog.For("patcher")

// UnpatchedPaths lists the build-time install prefixes Qt's CI bakes into
// binaries and scripts; all four spellings are tried regardless of the
// host platform, because a build machine's OS need not match the target
// platform of the archive it produced (e.g. Windows Android archives built
// on Linux CI).
var UnpatchedPaths = []string{
	"/home/qt/work/install/",
	"/Users/qt/work/install/",
	`C:\Users\qt\work\install\`,
	`C:\\Users\\qt\\work\\install\\`,
}

const maxPrefixLen = 256

// PatchBinFile finds key inside file, then overwrites the NUL-terminated
// string immediately following it with newPath, NUL-padded back out to the
// original string's length. This preserves the binary's layout exactly
// (every compiled-in offset after the patched string stays valid) which is
// why newPath must fit within the original slot, mirroring
// Updater._patch_binfile's slot-length invariant.
func PatchBinFile(path string, key []byte, newPath string) error {
	if len(newPath) >= maxPrefixLen {
		return aqterrors.NewUpdaterError(fmt.Sprintf("new prefix path is too long (%d >= %d): %s", len(newPath), maxPrefixLen, newPath), nil)
	}

	ra, err := mmap.Open(path)
	if err != nil {
		return err
	}
	data := make([]byte, ra.Len())
	if _, err := ra.ReadAt(data, 0); err != nil {
		ra.Close()
		return err
	}
	ra.Close()

	idx := bytes.Index(data, key)
	if idx == -1 {
		return aqterrors.NewUpdaterError(fmt.Sprintf("key %q not found in %s", key, path), nil)
	}
	start := idx + len(key)
	end := start
	for end < len(data) && data[end] != 0 {
		end++
	}
	if end == len(data) {
		return aqterrors.NewUpdaterError(fmt.Sprintf("no NUL terminator found after key %q in %s", key, path), nil)
	}
	oldLen := end - start
	if len(newPath) > oldLen {
		return aqterrors.NewUpdaterError(fmt.Sprintf("new prefix path does not fit the %d-byte slot after key %q in %s: %s", oldLen, key, path, newPath), nil)
	}
	replacement := make([]byte, oldLen)
	copy(replacement, newPath)

	st, err := os.Stat(path)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_RDWR, st.Mode())
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteAt(replacement, int64(start)); err != nil {
		return err
	}
	return os.Chmod(path, st.Mode())
}

// PatchTextFile replaces every occurrence of old with new in file,
// optionally marking the result executable, matching
// Updater._patch_textfile.
func PatchTextFile(path, old, new string, isExecutable bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	patched := strings.ReplaceAll(string(data), old, new)
	return writeTextFile(path, patched, isExecutable)
}

// PatchTextFileRegexp applies re.ReplaceAllString to file's contents, used
// for the MULTILINE substitutions target_qt.conf and qdevice.pri need.
func PatchTextFileRegexp(path string, re *regexp.Regexp, replacement string, isExecutable bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	patched := re.ReplaceAllString(string(data), replacement)
	return writeTextFile(path, patched, isExecutable)
}

func writeTextFile(path, content string, isExecutable bool) error {
	st, err := os.Stat(path)
	mode := os.FileMode(0644)
	if err == nil {
		mode = st.Mode()
	}
	if isExecutable {
		mode |= 0111
	}
	t, err := renameio.TempFile("", path)
	if err != nil {
		return err
	}
	defer t.Cleanup()
	if _, err := t.Write([]byte(content)); err != nil {
		return err
	}
	if err := t.Chmod(mode); err != nil {
		return err
	}
	return t.CloseAtomicallyReplace()
}

// DetectQmake runs "<prefix>/bin/qmake -query" and parses its KEY:VALUE
// output, matching Updater._detect_qmake.
func DetectQmake(prefix string) (map[string]string, error) {
	qmake := filepath.Join(prefix, "bin", "qmake")
	if runtime.GOOS == "windows" {
		qmake += ".exe"
	}
	out, err := exec.Command(qmake, "-query").Output()
	if err != nil {
		return nil, aqterrors.NewUpdaterError("running qmake -query", err)
	}
	result := map[string]string{}
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		result[parts[0]] = parts[1]
	}
	return result, nil
}

// PatchQmake rewrites the three prefix keys baked into the qmake binary
// itself, matching Updater.patch_qmake.
func PatchQmake(prefix string) error {
	qmake := filepath.Join(prefix, "bin", "qmake")
	if runtime.GOOS == "windows" {
		qmake += ".exe"
	}
	for _, key := range []string{"qt_prfxpath=", "qt_epfxpath=", "qt_hpfxpath="} {
		if err := PatchBinFile(qmake, []byte(key), prefix); err != nil {
			return err
		}
	}
	return nil
}

// PatchQmakeScript rewrites bin/qmake(.bat) from a text-based shim script
// (used on Qt 6 mobile/wasm archives, which ship qmake as a wrapper rather
// than a real binary) to point at the desktop Qt's bin directory.
func PatchQmakeScript(baseDir, osName, desktopArchDir string) error {
	script := filepath.Join(baseDir, "bin", "qmake")
	if osName == "windows" {
		script += ".bat"
	}
	if _, err := os.Stat(script); err != nil {
		return nil
	}
	newBin := filepath.Join(desktopArchDir, "bin")
	if osName == "windows" {
		newBin = strings.ReplaceAll(newBin, "/", `\`)
	}
	for _, old := range UnpatchedPaths {
		oldBin := old + "bin"
		if err := PatchTextFile(script, oldBin, newBin, true); err != nil {
			return err
		}
	}
	return nil
}

// PatchPkgConfig rewrites every lib/pkgconfig/*.pc file's prefix (and, on
// mac, its -F framework-search-path flag) to point at prefix, matching
// Updater.patch_pkgconfig. The search value is the build-time path baked in
// by Qt's CI, one of UnpatchedPaths, never prefix itself: prefix is where
// we're installing to, not what the shipped archive contains.
func PatchPkgConfig(prefix, osName string) error {
	matches, err := filepath.Glob(filepath.Join(prefix, "lib", "pkgconfig", "*.pc"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		for _, old := range UnpatchedPaths {
			oldValue := strings.TrimRight(old, `/\`)
			if err := PatchTextFile(m, "prefix="+oldValue, "prefix="+prefix, false); err != nil {
				return err
			}
			if osName == "mac" {
				if err := PatchTextFile(m, "-F"+oldValue+"/lib", "-F"+prefix+"/lib", false); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// PatchLibtool rewrites every lib/*.la file's libdir entries to point at
// prefix, matching Updater.patch_libtool. As in PatchPkgConfig, the value
// being searched for is one of UnpatchedPaths, not prefix.
func PatchLibtool(prefix, osName string) error {
	matches, err := filepath.Glob(filepath.Join(prefix, "lib", "*.la"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		for _, old := range UnpatchedPaths {
			oldValue := strings.TrimRight(old, `/\`)
			variants := [][2]string{
				{"libdir='" + oldValue + "/lib'", "libdir='" + prefix + "/lib'"},
				{"libdir=" + oldValue + "/lib", "libdir=" + prefix + "/lib"},
				{"-L" + oldValue + "/lib", "-L" + prefix + "/lib"},
				{"'-L" + oldValue + "/lib'", "'-L" + prefix + "/lib'"},
			}
			if osName == "mac" {
				variants = append(variants,
					[2]string{"-F" + oldValue + "/lib", "-F" + prefix + "/lib"},
					[2]string{"'-F" + oldValue + "/lib'", "'-F" + prefix + "/lib'"},
				)
			}
			for _, v := range variants {
				if err := PatchTextFile(m, v[0], v[1], false); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// PatchQtCore patches the qt_prfxpath= key baked into the platform-specific
// QtCore shared library, required only for Qt < 5.14, matching
// Updater.patch_qtcore.
func PatchQtCore(prefix, osName string) error {
	var rel string
	switch osName {
	case "mac":
		rel = filepath.Join("lib", "QtCore.framework", "QtCore")
	case "windows":
		rel = filepath.Join("bin", "Qt5Core.dll")
	default:
		rel = filepath.Join("lib", "libQt5Core.so")
	}
	path := filepath.Join(prefix, rel)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return PatchBinFile(path, []byte("qt_prfxpath="), prefix)
}

// MakeQtConf writes archDir/bin/qt.conf with a Prefix pointing one level up
// (at archDir), matching Updater.make_qtconf.
func MakeQtConf(archDir string) error {
	content := "[Paths]\nPrefix=..\n"
	return writeTextFile(filepath.Join(archDir, "bin", "qt.conf"), content, false)
}

// MakeQtEnv2 writes the qtenv2.bat helper script Windows installs ship,
// matching Updater.make_qtenv2.
func MakeQtEnv2(archDir string) error {
	content := fmt.Sprintf(
		"@echo off\r\necho Setting up environment for Qt usage...\r\nset PATH=%s\\bin;%%PATH%%\r\necho Remember to call vcvarsall.bat to complete environment setup!\r\n",
		archDir,
	)
	return writeTextFile(filepath.Join(archDir, "bin", "qtenv2.bat"), content, false)
}

var qtEditionRe = regexp.MustCompile(`(?m)^QT_EDITION\s*=.*$`)
var qtLicheckRe = regexp.MustCompile(`(?m)^QT_LICHECK\s*=.*$`)

// SetLicense rewrites mkspecs/qconfig.pri's QT_EDITION/QT_LICHECK lines for
// the OpenSource edition, matching Updater.set_license.
func SetLicense(archDir string) error {
	path := filepath.Join(archDir, "mkspecs", "qconfig.pri")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	content := string(data)
	content = qtEditionRe.ReplaceAllString(content, "QT_EDITION = OpenSource")
	content = qtLicheckRe.ReplaceAllString(content, "QT_LICHECK =")
	return writeTextFile(path, content, false)
}

var hostLibExecsRe = regexp.MustCompile(`(?m)^HostLibraryExecutables=.*$`)

// PatchTargetQtConf rewrites target_qt.conf's Host*/Target* keys for the
// Qt 6 mobile/wasm layout, where the target archive's own binaries run on
// the desktop Qt's host tools, matching Updater.patch_target_qt_conf
// exactly (including the literal "HostPrefix=../.." and "HostData=target"
// replacements the original performs unconditionally).
func PatchTargetQtConf(archDir, desktopArchDir string) error {
	path := filepath.Join(archDir, "bin", "target_qt.conf")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	newHostPrefix := desktopArchDir
	newHostLibExecs := filepath.Join(desktopArchDir, "libexec")

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	content := string(data)
	content = hostLibExecsRe.ReplaceAllString(content, "HostLibraryExecutables="+newHostLibExecs)
	for _, old := range UnpatchedPaths {
		content = strings.ReplaceAll(content, "Prefix="+old+"target", "Prefix="+archDir)
	}
	content = strings.ReplaceAll(content, "HostPrefix=../..", "HostPrefix="+relPath(archDir, newHostPrefix))
	content = strings.ReplaceAll(content, "HostData=target", "HostData=.")
	return writeTextFile(path, content, false)
}

func relPath(from, to string) string {
	rel, err := filepath.Rel(from, to)
	if err != nil {
		return to
	}
	return rel
}

var androidNdkHostRe = regexp.MustCompile(`(?m)^DEFAULT_ANDROID_NDK_HOST =.*$`)

// PatchQdeviceFile rewrites mkspecs/qdevice.pri's default Android NDK host
// identifier to match the installing machine's OS, matching
// Updater.patch_qdevice_file.
func PatchQdeviceFile(archDir, osName string) error {
	path := filepath.Join(archDir, "mkspecs", "qdevice.pri")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	host := osName + "-x86_64"
	if osName == "mac" {
		host = "darwin-x86_64"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	content := androidNdkHostRe.ReplaceAllString(string(data), "DEFAULT_ANDROID_NDK_HOST = "+host)
	return writeTextFile(path, content, false)
}

// Target classifies a Qt architecture directory for patching purposes.
type Target struct {
	OSName         string // "linux", "mac", "windows"
	ArchDir        string // absolute path to this arch's install directory
	Version        string // "6.2.0"
	VersionMajor   int
	Arch           string // e.g. "gcc_64", "android_armv7", "wasm_32"
	DesktopArchDir string // required for Qt 6 mobile/wasm targets
}

func isMobileOrWasm(arch string) bool {
	return strings.HasPrefix(arch, "android") || strings.HasPrefix(arch, "ios") || strings.HasPrefix(arch, "wasm")
}

// Update runs the full post-extraction patch sequence for one installed
// architecture directory, dispatching between the desktop, Qt5-mobile, and
// Qt6-mobile/wasm state machines the way Updater.update does.
func Update(t Target) error {
	if err := SetLicense(t.ArchDir); err != nil {
		return aqterrors.NewUpdaterError("setting license", err)
	}

	if !isMobileOrWasm(t.Arch) {
		if err := MakeQtConf(t.ArchDir); err != nil {
			return aqterrors.NewUpdaterError("writing qt.conf", err)
		}
		if err := PatchQmake(t.ArchDir); err != nil {
			return aqterrors.NewUpdaterError("patching qmake", err)
		}
		if err := PatchPkgConfig(t.ArchDir, t.OSName); err != nil {
			log.WithError(err).Debug("no pkgconfig files to patch")
		}
		if err := PatchLibtool(t.ArchDir, t.OSName); err != nil {
			log.WithError(err).Debug("no libtool files to patch")
		}
		if t.OSName == "windows" {
			if err := MakeQtEnv2(t.ArchDir); err != nil {
				return aqterrors.NewUpdaterError("writing qtenv2.bat", err)
			}
		}
		if t.VersionMajor < 5 || (t.VersionMajor == 5 && versionLessThan514(t.Version)) {
			if err := PatchQtCore(t.ArchDir, t.OSName); err != nil {
				return aqterrors.NewUpdaterError("patching QtCore", err)
			}
		}
		return nil
	}

	if t.VersionMajor < 6 {
		if err := PatchQmake(t.ArchDir); err != nil {
			return aqterrors.NewUpdaterError("patching qmake", err)
		}
		return nil
	}

	if t.DesktopArchDir == "" {
		return aqterrors.NewUpdaterError("mobile/wasm Qt 6 patching requires a resolved desktop architecture directory", nil)
	}
	if err := PatchQmakeScript(t.ArchDir, t.OSName, t.DesktopArchDir); err != nil {
		return aqterrors.NewUpdaterError("patching qmake script", err)
	}
	if err := PatchTargetQtConf(t.ArchDir, t.DesktopArchDir); err != nil {
		return aqterrors.NewUpdaterError("patching target_qt.conf", err)
	}
	if err := PatchQdeviceFile(t.ArchDir, t.OSName); err != nil {
		return aqterrors.NewUpdaterError("patching qdevice.pri", err)
	}
	return nil
}

func versionLessThan514(v string) bool {
	var major, minor int
	fmt.Sscanf(v, "%d.%d", &major, &minor)
	return major < 5 || (major == 5 && minor < 14)
}
