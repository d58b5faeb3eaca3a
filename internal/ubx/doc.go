// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

/*
Package ubx encodes receiver configuration commands in the u-blox UBX binary
protocol.

Commands are read from a line-oriented text file (ubx.dat). Only lines that
start with the !UBX directive are commands; everything after '#' is a
comment:

	# enable RAWX at 1 Hz on USB
	!UBX CFG-MSG 2 21 0 0 0 1 0 0
	!UBX CFG-RATE 1000 1 1
	!UBX CFG-GNSS 0 32 32 1 6 8 16 0 0x01010001

Supported commands:

  - CFG-MSG (0x06 0x01): 8 u8 arguments
  - CFG-GNSS (0x06 0x3E): 8 u8 arguments followed by a u32 flags word,
    one configuration block
  - CFG-RATE (0x06 0x08): 3 u16 arguments

Numbers are decimal or 0x hex. Parsing fails fast on the first malformed line
with a *ParseError carrying the file path and line number.

# Framing

Every packet is framed as

	B5 62 | class | id | length (u16 LE) | payload | ck_a ck_b

where the checksum is the 8-bit Fletcher pair over class through payload.
*/
package ubx
