// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package ubx

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Frame constants.
const (
	SyncChar1 byte = 0xB5
	SyncChar2 byte = 0x62

	// Directive marks a command line in a configuration file.
	Directive = "!UBX"

	headerLen   = 6 // sync(2) + class + id + len(2)
	checksumLen = 2
)

// ErrNoCommands is returned by LoadCommands when a file holds no directives.
var ErrNoCommands = errors.New("no UBX commands found")

// ParseError reports a malformed directive line.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid UBX command at %s:%d: %s", e.Path, e.Line, e.Msg)
}

// Packet is one encoded configuration command.
type Packet struct {
	Name    string
	Class   byte
	ID      byte
	Payload []byte
	Line    int
}

// Bytes returns the full frame, sync through checksum.
func (p Packet) Bytes() []byte {
	return Encode(p.Class, p.ID, p.Payload)
}

// command describes one supported directive name.
type command struct {
	class, id byte
	build     func(args []string) ([]byte, error)
}

var commands = map[string]command{
	"CFG-MSG":  {class: 0x06, id: 0x01, build: buildCfgMsg},
	"CFG-GNSS": {class: 0x06, id: 0x3E, build: buildCfgGnss},
	"CFG-RATE": {class: 0x06, id: 0x08, build: buildCfgRate},
}

// LoadCommands reads and parses the command file at path. A file without any
// directive lines yields ErrNoCommands.
func LoadCommands(path string) ([]Packet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read UBX config %s: %w", path, err)
	}
	defer f.Close()

	packets, err := ParseCommands(f, path)
	if err != nil {
		return nil, err
	}
	if len(packets) == 0 {
		return nil, fmt.Errorf("%w in configuration file: %s", ErrNoCommands, path)
	}
	return packets, nil
}

// ParseCommands parses directive lines from r. It stops at the first
// malformed line. path is used only in error messages.
func ParseCommands(r io.Reader, path string) ([]Packet, error) {
	var packets []Packet

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, Directive+" ") {
			continue
		}

		tokens := strings.Fields(line)
		if len(tokens) < 3 {
			return nil, &ParseError{Path: path, Line: lineNo, Msg: "expected directive, name and arguments"}
		}

		name := tokens[1]
		cmd, ok := commands[name]
		if !ok {
			return nil, &ParseError{Path: path, Line: lineNo, Msg: fmt.Sprintf("unsupported command %q", name)}
		}
		payload, err := cmd.build(tokens[2:])
		if err != nil {
			return nil, &ParseError{Path: path, Line: lineNo, Msg: err.Error()}
		}

		packets = append(packets, Packet{
			Name:    name,
			Class:   cmd.class,
			ID:      cmd.id,
			Payload: payload,
			Line:    lineNo,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read UBX config %s: %w", path, err)
	}
	return packets, nil
}

func buildCfgMsg(args []string) ([]byte, error) {
	if len(args) != 8 {
		return nil, fmt.Errorf("CFG-MSG expects 8 arguments, got %d", len(args))
	}
	payload := make([]byte, 0, 8)
	for _, a := range args {
		v, err := parseUint(a, 8)
		if err != nil {
			return nil, err
		}
		payload = append(payload, byte(v))
	}
	return payload, nil
}

// buildCfgGnss encodes a single-block CFG-GNSS: msgVer, numTrkChHw,
// numTrkChUse, numConfigBlocks, then gnssId, resTrkCh, maxTrkCh, reserved1
// and a u32 flags word.
func buildCfgGnss(args []string) ([]byte, error) {
	if len(args) != 9 {
		return nil, fmt.Errorf("CFG-GNSS expects 9 arguments, got %d", len(args))
	}
	payload := make([]byte, 0, 12)
	for _, a := range args[:8] {
		v, err := parseUint(a, 8)
		if err != nil {
			return nil, err
		}
		payload = append(payload, byte(v))
	}
	if payload[3] != 1 {
		return nil, fmt.Errorf("CFG-GNSS supports exactly 1 config block, got %d", payload[3])
	}
	flags, err := parseUint(args[8], 32)
	if err != nil {
		return nil, err
	}
	return binary.LittleEndian.AppendUint32(payload, uint32(flags)), nil
}

func buildCfgRate(args []string) ([]byte, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("CFG-RATE expects 3 arguments, got %d", len(args))
	}
	payload := make([]byte, 0, 6)
	for _, a := range args {
		v, err := parseUint(a, 16)
		if err != nil {
			return nil, err
		}
		payload = binary.LittleEndian.AppendUint16(payload, uint16(v))
	}
	return payload, nil
}

// parseUint accepts decimal or 0x-prefixed hex and checks the value fits in
// bits.
func parseUint(tok string, bits int) (uint64, error) {
	base := 10
	digits := tok
	if strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0X") {
		base = 16
		digits = tok[2:]
	}
	v, err := strconv.ParseUint(digits, base, bits)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("value %s does not fit in u%d", tok, bits)
		}
		return 0, fmt.Errorf("invalid number %q", tok)
	}
	return v, nil
}

// Encode frames payload as a UBX packet.
func Encode(class, id byte, payload []byte) []byte {
	frame := make([]byte, 0, headerLen+len(payload)+checksumLen)
	frame = append(frame, SyncChar1, SyncChar2, class, id)
	frame = binary.LittleEndian.AppendUint16(frame, uint16(len(payload)))
	frame = append(frame, payload...)
	a, b := Checksum(frame[2:])
	return append(frame, a, b)
}

// Checksum computes the 8-bit Fletcher checksum over class, id, length and
// payload bytes.
func Checksum(data []byte) (ckA, ckB byte) {
	for _, c := range data {
		ckA += c
		ckB += ckA
	}
	return ckA, ckB
}
