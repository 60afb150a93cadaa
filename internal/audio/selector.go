package audio

import "strings"

// SelectInput picks one input device from a fresh enumeration.
//
// Policy: an explicitly configured device ID wins when present in the
// list; otherwise the first device whose name or ID contains one of the
// match substrings (case-insensitive) is preferred; otherwise the first
// input-capable device acts as the system default. With no input-capable
// devices at all, ErrNoInputDevice is returned.
func SelectInput(devices []Device, explicitID string, match []string) (Device, error) {
	var inputs []Device
	for _, d := range devices {
		if d.Input {
			inputs = append(inputs, d)
		}
	}
	if len(inputs) == 0 {
		return Device{}, ErrNoInputDevice
	}

	if explicitID != "" {
		for _, d := range inputs {
			if d.ID == explicitID {
				return d, nil
			}
		}
	}

	for _, d := range inputs {
		name := strings.ToLower(d.Name)
		id := strings.ToLower(d.ID)
		for _, key := range match {
			key = strings.ToLower(key)
			if key != "" && (strings.Contains(name, key) || strings.Contains(id, key)) {
				return d, nil
			}
		}
	}

	return inputs[0], nil
}
