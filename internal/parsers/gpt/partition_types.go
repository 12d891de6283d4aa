package gpt

import "github.com/google/uuid"

// UnknownTypeName labels a partition type GUID missing from the table.
const UnknownTypeName = "Unknown"

// Well-known partition type GUIDs
var (
	EFISystemPartitionType = uuid.MustParse("c12a7328-f81f-11d2-ba4b-00a0c93ec93b")
	BIOSBootPartitionType  = uuid.MustParse("21686148-6449-6e6f-744e-656564454649")
	MBRPartitionSchemeType = uuid.MustParse("024dee41-33e7-11d3-9d69-0008c781f39f")
	MicrosoftReservedType  = uuid.MustParse("e3c9e316-0b5c-4db8-817d-f92df00215ae")
	MicrosoftBasicDataType = uuid.MustParse("ebd0a0a2-b9e5-4433-87c0-68b6b72699c7")
	WindowsRecoveryType    = uuid.MustParse("de94bba4-06d1-4d40-a16a-bfd50179d6ac")
	LinuxFilesystemType    = uuid.MustParse("0fc63daf-8483-4772-8e79-3d69d8477de4")
	LinuxSwapType          = uuid.MustParse("0657fd6d-a4ab-43c4-84e5-0933c84b4f4f")
	LinuxLVMType           = uuid.MustParse("e6d6d379-f507-44c2-a23c-238f2a3df928")
	LinuxRAIDType          = uuid.MustParse("a19d880f-05fc-4d3b-a006-743f0f84911e")
	LinuxRootX8664Type     = uuid.MustParse("4f68bce3-e8cd-4db1-96e7-fbcaf984b709")
	LinuxRootARM64Type     = uuid.MustParse("b921b045-1df0-41c3-af44-4c6f280d3fae")
	LinuxHomeType          = uuid.MustParse("933ac7e1-2eb4-4f13-b844-0e14e2aef915")
	AppleHFSPlusType       = uuid.MustParse("48465300-0000-11aa-aa11-00306543ecac")
	AppleAPFSType          = uuid.MustParse("7c3457ef-0000-11aa-aa11-00306543ecac")
	AppleRAIDType          = uuid.MustParse("69646961-6700-11aa-aa11-00306543ecac")
	AppleBootType          = uuid.MustParse("426f6f74-0000-11aa-aa11-00306543ecac")
)

var partitionTypeNames = map[uuid.UUID]string{
	EFISystemPartitionType: "EFI System",
	BIOSBootPartitionType:  "BIOS Boot",
	MBRPartitionSchemeType: "MBR partition scheme",
	MicrosoftReservedType:  "Microsoft Reserved",
	MicrosoftBasicDataType: "Microsoft Basic Data",
	WindowsRecoveryType:    "Windows Recovery",
	LinuxFilesystemType:    "Linux Filesystem",
	LinuxSwapType:          "Linux Swap",
	LinuxLVMType:           "Linux LVM",
	LinuxRAIDType:          "Linux RAID",
	LinuxRootX8664Type:     "Linux Root (x86-64)",
	LinuxRootARM64Type:     "Linux Root (ARM64)",
	LinuxHomeType:          "Linux Home",
	AppleHFSPlusType:       "Apple HFS+",
	AppleAPFSType:          "Apple APFS",
	AppleRAIDType:          "Apple RAID",
	AppleBootType:          "Apple Boot",
}

// PartitionTypeName maps a partition type GUID to a human readable label.
// Unmatched GUIDs yield UnknownTypeName.
func PartitionTypeName(typeGUID uuid.UUID) string {
	if name, ok := partitionTypeNames[typeGUID]; ok {
		return name
	}
	return UnknownTypeName
}
