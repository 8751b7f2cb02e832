package discovery

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/azm-tools/azm-go/pkg/model"
)

// TXT record keys.
const (
	TXTKeyModel     = "md" // Hardware model
	TXTKeyZoneCount = "zc" // Configured zone count
	TXTKeySerial    = "sn" // Serial number (optional)
	TXTKeyFirmware  = "fw" // Firmware version (optional)
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeTXT creates TXT records for processor discovery.
func EncodeTXT(info *ProcessorInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	// Required fields
	txt[TXTKeyModel] = info.Model
	txt[TXTKeyZoneCount] = strconv.Itoa(info.ZoneCount)

	// Optional fields
	if info.SerialNumber != "" {
		txt[TXTKeySerial] = info.SerialNumber
	}
	if info.FirmwareVersion != "" {
		txt[TXTKeyFirmware] = info.FirmwareVersion
	}

	return txt
}

// DecodeTXT parses TXT records from processor discovery. Only the fields
// carried in TXT records are filled in; Name and Port come from the
// service entry itself.
func DecodeTXT(txt TXTRecordMap) (*ProcessorInfo, error) {
	info := &ProcessorInfo{}

	// Parse model (required)
	var ok bool
	info.Model, ok = txt[TXTKeyModel]
	if !ok || info.Model == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyModel)
	}

	// Parse zone count, falling back to the count implied by the model
	// when the record is missing or unreadable
	if zcStr, ok := txt[TXTKeyZoneCount]; ok {
		if zc, err := strconv.Atoi(zcStr); err == nil && zc > 0 {
			info.ZoneCount = zc
		}
	}
	if info.ZoneCount == 0 {
		info.ZoneCount = model.ZoneCountForModel(info.Model)
	}
	if info.ZoneCount == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyZoneCount)
	}

	// Optional fields
	info.SerialNumber = txt[TXTKeySerial]
	info.FirmwareVersion = txt[TXTKeyFirmware]

	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value"
// strings, the format mDNS libraries use.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a
// TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}
