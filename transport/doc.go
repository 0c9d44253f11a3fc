// Package transport provides [link.Transport] implementations for the
// carriers a TROPIC01 is commonly reachable over.
//
// All of them speak the same logical bus contract — duplex transfer, raw
// read, explicit chip-select — and differ only in how those operations are
// shipped to the hardware:
//
//   - [TCPSPI]: a raw SPI network bridge (netbridge32-style). Each message
//     is a one-byte command plus a big-endian length; chip-select commands
//     are single bytes acknowledged with 0x00. Default port 12345.
//   - [ModelTCP]: the tagged model-socket protocol spoken by the TROPIC01
//     model/simulator. Messages are [tag][length(2 LE)][payload], and the
//     server echoes the tag back. Default port 28992.
//   - [SerialHex]: a UART bridge running hex-line firmware. A transfer is
//     the tx bytes uppercase-hex-encoded plus "x\n"; the reply line is the
//     rx bytes in hex. Chip-select is driven by literal "CS=0"/"CS=1"
//     lines. 115200 8N1 by default.
//   - [WSHex]: the same hex-line conversation carried in WebSocket text
//     messages, for bridges exposed by debug boards over HTTP.
//
// None of the implementations are goroutine-safe; the link driver above
// them already serializes bus access.
package transport
