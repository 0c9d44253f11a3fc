package tropic

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/tropicsquare/go-tropic01/link"
)

// chipIDSize is the size of the CHIP_ID information object.
const chipIDSize = 128

// Package type identifiers reported in ChipID.PackageTypeID.
const (
	PackageBareDie uint16 = 0x8000
	PackageQFN32   uint16 = 0x80AA
)

// Fabrication facility identifiers reported in ChipID.FabID and
// SerialNumber.FabID.
const (
	FabTropicSquareLab uint16 = 0xF00
	FabEPSBrno         uint16 = 0x001
)

// SerialNumber identifies the physical die a chip was cut from.
type SerialNumber struct {
	SN           uint8
	FabID        uint16
	PartNumberID uint16
	FabDate      uint16
	LotID        []byte
	WaferID      uint8
	XCoord       uint16
	YCoord       uint16
}

// parseSerialNumber decodes the 16-byte serial number field. The 12-bit
// fab and part number identifiers share a 24-bit big-endian block.
func parseSerialNumber(data []byte) SerialNumber {
	fabData := uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
	return SerialNumber{
		SN:           data[0],
		FabID:        uint16(fabData >> 12),
		PartNumberID: uint16(fabData & 0xFFF),
		FabDate:      uint16(data[4])<<8 | uint16(data[5]),
		LotID:        data[6:11],
		WaferID:      data[11],
		XCoord:       uint16(data[12])<<8 | uint16(data[13]),
		YCoord:       uint16(data[14])<<8 | uint16(data[15]),
	}
}

func (s SerialNumber) String() string {
	return fmt.Sprintf("sn=%d fab=0x%03X part=0x%03X date=%d lot=%X wafer=%d x=%d y=%d",
		s.SN, s.FabID, s.PartNumberID, s.FabDate, s.LotID, s.WaferID, s.XCoord, s.YCoord)
}

// ChipID is the decoded CHIP_ID information object.
type ChipID struct {
	Version          []byte
	FLChipInfo       []byte
	FuncTestInfo     []byte
	SiliconRev       string
	PackageTypeID    uint16
	ProvInfoVersion  uint8
	FabID            uint16
	PartNumberID     uint16
	ProvisioningDate uint16
	HSMVersion       []byte
	ProgramVersion   []byte
	SerialNumber     SerialNumber
	PartNumber       string
	ProvTemplateVer  uint16
	ProvTemplateTag  []byte
	ProvSpecVer      uint16
	ProvSpecTag      []byte
	BatchID          []byte
}

// ParseChipID decodes a CHIP_ID information object.
func ParseChipID(data []byte) (*ChipID, error) {
	if len(data) < chipIDSize {
		return nil, fmt.Errorf("%w: chip id is %d bytes, want %d", ErrResponseLength, len(data), chipIDSize)
	}

	// The provisioning info packs version, fab and part number into
	// 8 + 12 + 12 big-endian bits.
	provInfo := uint32(data[36])<<24 | uint32(data[37])<<16 | uint32(data[38])<<8 | uint32(data[39])

	return &ChipID{
		Version:          data[0:4],
		FLChipInfo:       data[4:20],
		FuncTestInfo:     data[20:28],
		SiliconRev:       asciiField(data[28:32]),
		PackageTypeID:    uint16(data[32])<<8 | uint16(data[33]),
		ProvInfoVersion:  uint8(provInfo >> 24),
		FabID:            uint16(provInfo >> 12 & 0xFFF),
		PartNumberID:     uint16(provInfo & 0xFFF),
		ProvisioningDate: uint16(data[40])<<8 | uint16(data[41]),
		HSMVersion:       data[42:46],
		ProgramVersion:   data[46:50],
		SerialNumber:     parseSerialNumber(data[52:68]),
		PartNumber:       asciiField(data[68:84]),
		ProvTemplateVer:  uint16(data[84])<<8 | uint16(data[85]),
		ProvTemplateTag:  data[86:90],
		ProvSpecVer:      uint16(data[90])<<8 | uint16(data[91]),
		ProvSpecTag:      data[92:96],
		BatchID:          data[96:101],
	}, nil
}

// PackageName returns the human-readable package type.
func (id *ChipID) PackageName() string {
	switch id.PackageTypeID {
	case PackageBareDie:
		return "Bare die"
	case PackageQFN32:
		return "QFN32"
	default:
		return fmt.Sprintf("unknown(0x%04X)", id.PackageTypeID)
	}
}

// FabName returns the human-readable fabrication facility.
func (id *ChipID) FabName() string {
	return fabName(id.FabID)
}

func fabName(id uint16) string {
	switch id {
	case FabTropicSquareLab:
		return "Tropic Square Lab"
	case FabEPSBrno:
		return "EPS Global Brno"
	default:
		return fmt.Sprintf("unknown(0x%03X)", id)
	}
}

func (id *ChipID) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "chip id version: %s\n", dottedVersion(id.Version))
	fmt.Fprintf(&sb, "silicon revision: %s\n", id.SiliconRev)
	fmt.Fprintf(&sb, "package: %s\n", id.PackageName())
	fmt.Fprintf(&sb, "fab: %s\n", id.FabName())
	fmt.Fprintf(&sb, "part number: %s\n", id.PartNumber)
	fmt.Fprintf(&sb, "provisioning: version %d, date %d\n", id.ProvInfoVersion, id.ProvisioningDate)
	fmt.Fprintf(&sb, "batch: %X\n", id.BatchID)
	fmt.Fprintf(&sb, "serial number: %s", id.SerialNumber)
	return sb.String()
}

// ChipID reads and decodes the chip identification object.
func (c *Client) ChipID() (*ChipID, error) {
	data, err := c.driver.GetInfo(link.InfoChipID, 0)
	if err != nil {
		return nil, err
	}
	return ParseChipID(data)
}

// asciiField renders a fixed-size field as text, dropping trailing zero
// padding.
func asciiField(data []byte) string {
	return string(bytes.TrimRight(data, "\x00"))
}

// dottedVersion renders version bytes as "1.2.3.4".
func dottedVersion(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = strconv.Itoa(int(v))
	}
	return strings.Join(parts, ".")
}
