// Package config loads aqt-go's settings, the Go counterpart to the
// original's settings.ini-backed Settings singleton.
package config

import (
	"time"

	"gopkg.in/ini.v1"
)

// Settings holds every tunable the core pipeline consumes. None of its
// fields are read directly from disk or the environment by the core
// packages; Load populates this struct once at startup and everything
// downstream treats it as an opaque value.
type Settings struct {
	Concurrency               int
	ConnectionTimeout          time.Duration
	ResponseTimeout            time.Duration
	MaxRetriesOnConnection     int
	MaxRetriesOnChecksumError  int
	MaxRetriesForHash          int
	BaseURL                    string
	TrustedMirrors             []string
	Blacklist                  []string
	Fallbacks                  []string
	MinModuleSize              int64
	AlwaysKeepArchives         bool
	ArchiveDownloadLocation    string
	PrintStacktraceOnError     bool
	ZipCmd                     string

	QtCombinations   map[string][]string
	ToolCombinations map[string][]string
}

// Defaults returns the built-in configuration used when no settings file is
// present, matching the values the original ships in its packaged
// settings.ini.
func Defaults() *Settings {
	return &Settings{
		Concurrency:               4,
		ConnectionTimeout:         45 * time.Second,
		ResponseTimeout:           30 * time.Second,
		MaxRetriesOnConnection:    5,
		MaxRetriesOnChecksumError: 5,
		MaxRetriesForHash:         5,
		BaseURL:                   "https://download.qt.io",
		TrustedMirrors:            nil,
		Blacklist:                 nil,
		Fallbacks:                 nil,
		MinModuleSize:             0,
		AlwaysKeepArchives:        false,
		ArchiveDownloadLocation:   "",
		PrintStacktraceOnError:    true,
		ZipCmd:                    "",
		QtCombinations: map[string][]string{
			"linux/desktop":   {"gcc_64"},
			"linux/android":   {"android_armv7", "android_arm64_v8a", "android_x86", "android_x86_64", "android"},
			"mac/desktop":     {"clang_64"},
			"mac/ios":         {"ios"},
			"mac/android":     {"android_armv7", "android_arm64_v8a", "android_x86", "android_x86_64", "android"},
			"windows/desktop": {"win64_msvc2019_64", "win64_msvc2017_64", "win64_mingw81", "mingw81_64"},
			"windows/android": {"android_armv7", "android_arm64_v8a", "android_x86", "android_x86_64", "android"},
			"all/wasm":        {"wasm_32"},
		},
		ToolCombinations: map[string][]string{
			"linux":   {"linux_x64"},
			"mac":     {"clang_64"},
			"windows": {"win64_msvc2019_64", "win32_msvc2019"},
		},
	}
}

// Load reads an INI file at path if it exists, overlaying values onto the
// built-in defaults; a missing path is not an error.
func Load(path string) (*Settings, error) {
	s := Defaults()
	if path == "" {
		return s, nil
	}
	cfg, err := ini.LooseLoad(path)
	if err != nil {
		return nil, err
	}
	if sec := cfg.Section("requests"); sec != nil {
		if v := sec.Key("connection_timeout").MustFloat64(0); v != 0 {
			s.ConnectionTimeout = time.Duration(v * float64(time.Second))
		}
		if v := sec.Key("response_timeout").MustFloat64(0); v != 0 {
			s.ResponseTimeout = time.Duration(v * float64(time.Second))
		}
		s.MaxRetriesOnConnection = sec.Key("max_retries_on_connection_error").MustInt(s.MaxRetriesOnConnection)
		s.MaxRetriesOnChecksumError = sec.Key("max_retries_on_checksum_error").MustInt(s.MaxRetriesOnChecksumError)
		s.MaxRetriesForHash = sec.Key("max_retries_to_retrieve_hash").MustInt(s.MaxRetriesForHash)
	}
	if sec := cfg.Section("mirrors"); sec != nil {
		s.BaseURL = sec.Key("baseurl").MustString(s.BaseURL)
		s.TrustedMirrors = sec.Key("trusted_mirrors").Strings(",")
		s.Blacklist = sec.Key("blacklist").Strings(",")
		s.Fallbacks = sec.Key("fallbacks").Strings(",")
	}
	if sec := cfg.Section("aqt"); sec != nil {
		s.Concurrency = sec.Key("concurrency").MustInt(s.Concurrency)
		s.AlwaysKeepArchives = sec.Key("always_keep_archives").MustBool(s.AlwaysKeepArchives)
		s.ArchiveDownloadLocation = sec.Key("archive_download_location").MustString(s.ArchiveDownloadLocation)
		s.PrintStacktraceOnError = sec.Key("print_stacktrace_on_error").MustBool(s.PrintStacktraceOnError)
		s.MinModuleSize = sec.Key("min_module_size").MustInt64(s.MinModuleSize)
		s.ZipCmd = sec.Key("7z_command").MustString(s.ZipCmd)
	}
	return s, nil
}

// CheckQtCombination reports whether arch is a known architecture for the
// given host/target combination.
func (s *Settings) CheckQtCombination(host, target, arch string) bool {
	archs, ok := s.QtCombinations[host+"/"+target]
	if !ok {
		archs, ok = s.QtCombinations["all/"+target]
		if !ok {
			return false
		}
	}
	for _, a := range archs {
		if a == arch {
			return true
		}
	}
	return false
}

// CheckToolCombination reports whether arch is a known tool architecture
// for the given host.
func (s *Settings) CheckToolCombination(host, arch string) bool {
	archs, ok := s.ToolCombinations[host]
	if !ok {
		return false
	}
	for _, a := range archs {
		if a == arch {
			return true
		}
	}
	return false
}
