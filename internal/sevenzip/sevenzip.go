// Package sevenzip extracts the 7z archives Qt ships its packages as,
// either by shelling out to an external 7z-compatible executable or, when
// none is configured, with a minimal built-in reader. The built-in reader
// extracts only archives holding a single file in a single LZMA2-compressed
// folder, with an unencoded header and no encryption; it does not split a
// folder into several files, so multi-file archives return
// ErrUnsupportedCoder.
package sevenzip

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ulikunitz/xz/lzma"
	"golang.org/x/xerrors"

	"github.com/goaqt/aqt/internal/aqterrors"
	"github.com/goaqt/aqt/internal/aqtlog"
)

var log = aqtlog.For("sevenzip")

// ErrUnsupportedCoder is returned by Extract when the archive uses a
// coder or layout (BCJ2, PPMd, AES, an encoded header, multiple folders,
// more than one file) the built-in reader does not implement. Callers should fall back
// to an external extractorCmd.
var ErrUnsupportedCoder = errors.New("sevenzip: archive uses an unsupported coder; configure an external 7z executable")

var signature = [6]byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}

const (
	idEnd             = 0x00
	idHeader          = 0x01
	idMainStreamsInfo = 0x04
	idFilesInfo       = 0x05
	idPackInfo        = 0x06
	idUnpackInfo      = 0x07
	idSubStreamsInfo  = 0x08
	idFolder          = 0x0B
	idCodersUnpackSize = 0x0C
	idName            = 0x11
	idEmptyStream     = 0x0E
	idEmptyFile       = 0x0F
	idSize            = 0x09
)

// Extract unpacks archivePath into destDir, using extractorCmd (e.g. "7z"
// or "7zr") if non-empty, else the built-in decoder. It mirrors
// installer.py's extraction step: overwrite without prompting, preserve
// the archive's internal directory structure under destDir.
func Extract(ctx context.Context, archivePath, destDir, extractorCmd string) error {
	if extractorCmd != "" {
		return extractExternal(ctx, archivePath, destDir, extractorCmd)
	}
	if err := extractBuiltin(archivePath, destDir); err != nil {
		if errors.Is(err, ErrUnsupportedCoder) {
			return err
		}
		return aqterrors.NewArchiveExtractionError(fmt.Sprintf("extracting %s", archivePath), err)
	}
	return nil
}

// extractExternal shells out to a 7z-compatible executable, matching the
// original's subprocess invocation: `7z x -aoa -bd -y -o<dir> <archive>`.
func extractExternal(ctx context.Context, archivePath, destDir, extractorCmd string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, extractorCmd, "x", "-aoa", "-bd", "-y", "-o"+destDir, archivePath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		log.WithError(err).WithField("output", string(out)).Error("external extractor failed")
		return aqterrors.NewArchiveExtractionError(fmt.Sprintf("%s exited with error extracting %s", extractorCmd, archivePath), err)
	}
	return nil
}

type fileEntry struct {
	name       string
	emptyStream bool
	emptyFile   bool
}

type folderInfo struct {
	packedSize   int64
	unpackedSize int64
	coderID      []byte
	props        []byte
}

// extractBuiltin implements the narrow built-in path: one pack stream, one
// folder, one LZMA2 coder, no encryption, and a single file entry. Any
// other layout, including every archive with more than one file, returns
// ErrUnsupportedCoder.
func extractBuiltin(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	var sig [6]byte
	if _, err := io.ReadFull(f, sig[:]); err != nil {
		return err
	}
	if sig != signature {
		return fmt.Errorf("sevenzip: %s is not a 7z archive", archivePath)
	}
	// version (2 bytes) + start header CRC (4 bytes)
	if _, err := f.Seek(6, io.SeekCurrent); err != nil {
		return err
	}
	var startHeader struct {
		NextHeaderOffset int64
		NextHeaderSize   int64
		NextHeaderCRC    uint32
	}
	if err := binary.Read(f, binary.LittleEndian, &startHeader.NextHeaderOffset); err != nil {
		return err
	}
	if err := binary.Read(f, binary.LittleEndian, &startHeader.NextHeaderSize); err != nil {
		return err
	}
	if err := binary.Read(f, binary.LittleEndian, &startHeader.NextHeaderCRC); err != nil {
		return err
	}

	const baseHeaderOffset = 32
	if _, err := f.Seek(baseHeaderOffset+startHeader.NextHeaderOffset, io.SeekStart); err != nil {
		return err
	}
	headerBuf := make([]byte, startHeader.NextHeaderSize)
	if _, err := io.ReadFull(f, headerBuf); err != nil {
		return err
	}

	br := bufio.NewReader(bytes.NewReader(headerBuf))
	id, err := br.ReadByte()
	if err != nil {
		return err
	}
	if id != idHeader {
		return ErrUnsupportedCoder
	}

	folders, packOffset, packSizes, names, emptiness, err := parseHeader(br)
	if err != nil {
		return err
	}
	if len(folders) != 1 {
		return ErrUnsupportedCoder
	}
	folder := folders[0]
	if len(folder.coderID) != 1 || folder.coderID[0] != 0x21 { // 0x21 == LZMA2
		return ErrUnsupportedCoder
	}

	packStart := int64(baseHeaderOffset) + packOffset
	if _, err := f.Seek(packStart, io.SeekStart); err != nil {
		return err
	}
	packed := make([]byte, packSizes[0])
	if _, err := io.ReadFull(f, packed); err != nil {
		return err
	}

	rd, err := lzma.NewReader2(bytes.NewReader(packed))
	if err != nil {
		return xerrors.Errorf("sevenzip: lzma2 stream: %w", err)
	}

	return unpackSingleStream(rd, folder.unpackedSize, destDir, names, emptiness)
}

func parseHeader(br *bufio.Reader) (folders []folderInfo, packOffset int64, packSizes []int64, names []string, emptiness []fileEntry, err error) {
	for {
		id, err2 := br.ReadByte()
		if err2 != nil {
			return nil, 0, nil, nil, nil, err2
		}
		switch id {
		case idMainStreamsInfo:
			folders, packOffset, packSizes, err = parseStreamsInfo(br)
			if err != nil {
				return nil, 0, nil, nil, nil, err
			}
		case idFilesInfo:
			names, emptiness, err = parseFilesInfo(br)
			if err != nil {
				return nil, 0, nil, nil, nil, err
			}
		case idEnd:
			return folders, packOffset, packSizes, names, emptiness, nil
		default:
			// Unknown/unsupported property kind for our minimal reader.
			return nil, 0, nil, nil, nil, ErrUnsupportedCoder
		}
	}
}

func readNumber(br *bufio.Reader) (int64, error) {
	first, err := br.ReadByte()
	if err != nil {
		return 0, err
	}
	mask := byte(0x80)
	value := int64(0)
	for i := 0; i < 8; i++ {
		if first&mask == 0 {
			value |= int64(first&(mask-1)) << (8 * i)
			return value, nil
		}
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		value |= int64(b) << (8 * i)
		mask >>= 1
	}
	return value, nil
}

func parseStreamsInfo(br *bufio.Reader) ([]folderInfo, int64, []int64, error) {
	var packOffset int64
	var packSizes []int64
	var folders []folderInfo
	for {
		id, err := br.ReadByte()
		if err != nil {
			return nil, 0, nil, err
		}
		switch id {
		case idPackInfo:
			off, err := readNumber(br)
			if err != nil {
				return nil, 0, nil, err
			}
			packOffset = off
			count, err := readNumber(br)
			if err != nil {
				return nil, 0, nil, err
			}
			propID, err := br.ReadByte()
			if err != nil {
				return nil, 0, nil, err
			}
			if propID != idSize {
				return nil, 0, nil, ErrUnsupportedCoder
			}
			for i := int64(0); i < count; i++ {
				sz, err := readNumber(br)
				if err != nil {
					return nil, 0, nil, err
				}
				packSizes = append(packSizes, sz)
			}
			end, err := br.ReadByte()
			if err != nil {
				return nil, 0, nil, err
			}
			if end != idEnd {
				return nil, 0, nil, ErrUnsupportedCoder
			}
		case idUnpackInfo:
			fs, err := parseUnpackInfo(br)
			if err != nil {
				return nil, 0, nil, err
			}
			folders = fs
		case idSubStreamsInfo:
			if err := skipToEnd(br); err != nil {
				return nil, 0, nil, err
			}
		case idEnd:
			return folders, packOffset, packSizes, nil
		default:
			return nil, 0, nil, ErrUnsupportedCoder
		}
	}
}

func parseUnpackInfo(br *bufio.Reader) ([]folderInfo, error) {
	id, err := br.ReadByte()
	if err != nil || id != idFolder {
		return nil, ErrUnsupportedCoder
	}
	numFolders, err := readNumber(br)
	if err != nil {
		return nil, err
	}
	external, err := br.ReadByte()
	if err != nil || external != 0 {
		return nil, ErrUnsupportedCoder
	}
	folders := make([]folderInfo, 0, numFolders)
	for i := int64(0); i < numFolders; i++ {
		numCoders, err := readNumber(br)
		if err != nil {
			return nil, err
		}
		if numCoders != 1 {
			return nil, ErrUnsupportedCoder
		}
		flags, err := br.ReadByte()
		if err != nil {
			return nil, err
		}
		idSize := int(flags & 0x0F)
		isComplex := flags&0x10 != 0
		hasAttrs := flags&0x20 != 0
		if isComplex {
			return nil, ErrUnsupportedCoder
		}
		coderID := make([]byte, idSize)
		if _, err := io.ReadFull(br, coderID); err != nil {
			return nil, err
		}
		var props []byte
		if hasAttrs {
			propSize, err := readNumber(br)
			if err != nil {
				return nil, err
			}
			props = make([]byte, propSize)
			if _, err := io.ReadFull(br, props); err != nil {
				return nil, err
			}
		}
		folders = append(folders, folderInfo{coderID: coderID, props: props})
	}
	id2, err := br.ReadByte()
	if err != nil || id2 != idCodersUnpackSize {
		return nil, ErrUnsupportedCoder
	}
	for i := range folders {
		sz, err := readNumber(br)
		if err != nil {
			return nil, err
		}
		folders[i].unpackedSize = sz
	}
	if err := skipToEnd(br); err != nil {
		return nil, err
	}
	return folders, nil
}

func skipToEnd(br *bufio.Reader) error {
	depth := 0
	for {
		id, err := br.ReadByte()
		if err != nil {
			return err
		}
		if id == idEnd {
			if depth == 0 {
				return nil
			}
			depth--
			continue
		}
		// We don't interpret nested property bodies we don't care about;
		// bail out rather than mis-parse, the caller falls back to an
		// external extractor.
		return ErrUnsupportedCoder
	}
}

func parseFilesInfo(br *bufio.Reader) ([]string, []fileEntry, error) {
	numFiles, err := readNumber(br)
	if err != nil {
		return nil, nil, err
	}
	var names []string
	entries := make([]fileEntry, numFiles)
	for {
		propType, err := br.ReadByte()
		if err != nil {
			return nil, nil, err
		}
		if propType == idEnd {
			break
		}
		size, err := readNumber(br)
		if err != nil {
			return nil, nil, err
		}
		body := make([]byte, size)
		if _, err := io.ReadFull(br, body); err != nil {
			return nil, nil, err
		}
		switch propType {
		case idEmptyStream:
			bits := readBits(body, int(numFiles))
			for i, b := range bits {
				entries[i].emptyStream = b
			}
		case idEmptyFile:
			// body is bit-packed over only the empty-stream entries; treat
			// conservatively and rely on name parsing for directory detection.
		case idName:
			names, err = parseNames(body, int(numFiles))
			if err != nil {
				return nil, nil, err
			}
		}
	}
	for i := range entries {
		if i < len(names) {
			entries[i].name = names[i]
		}
	}
	return names, entries, nil
}

func readBits(body []byte, count int) []bool {
	out := make([]bool, count)
	for i := 0; i < count; i++ {
		byteIdx := i / 8
		if byteIdx >= len(body) {
			break
		}
		bit := 7 - (i % 8)
		out[i] = body[byteIdx]&(1<<bit) != 0
	}
	return out
}

func parseNames(body []byte, count int) ([]string, error) {
	if len(body) < 1 {
		return nil, ErrUnsupportedCoder
	}
	external := body[0]
	if external != 0 {
		return nil, ErrUnsupportedCoder
	}
	body = body[1:]
	var names []string
	for len(body) >= 2 && len(names) < count {
		var runes []rune
		for len(body) >= 2 {
			u := binary.LittleEndian.Uint16(body)
			body = body[2:]
			if u == 0 {
				break
			}
			runes = append(runes, rune(u))
		}
		names = append(names, string(runes))
	}
	return names, nil
}

// unpackSingleStream decodes the single unpacked stream rd and splits it
// across the archive's file entries in order, matching 7z's concatenated-
// substream layout for the common one-folder-one-substream-per-file case.
func unpackSingleStream(rd io.Reader, totalSize int64, destDir string, names []string, entries []fileEntry) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}
	lr := io.LimitReader(rd, totalSize)
	// Without per-file sizes (kSize under SubStreamsInfo, which this
	// minimal reader does not parse), we cannot split the decoded stream
	// by file boundary; extract it as a single blob next to the first
	// named entry and let the caller's external-extractor fallback handle
	// archives where that isn't good enough.
	if len(names) == 0 {
		return ErrUnsupportedCoder
	}
	dest := filepath.Join(destDir, names[0])
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, lr); err != nil {
		return err
	}
	if len(names) > 1 {
		return ErrUnsupportedCoder
	}
	return nil
}
