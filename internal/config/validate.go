package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

const (
	sectionSettings  = "settings"
	sectionSchedules = "schedules"
	sectionLogging   = "logging"
)

// requiredSections lists required sections and their required keys in
// validation order. The first absence wins, so order here is part of the
// error-message contract.
var requiredSections = []struct {
	name string
	keys []string
}{
	{name: sectionSettings, keys: []string{"dest_folder", "connections", "max_download_speed", "rpc_port"}},
	{name: sectionSchedules},
}

// ValidationError reports the first missing required section or key.
type ValidationError struct {
	Section string
	Key     string
}

func (e *ValidationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("Missing required section: '%s'", e.Section)
	}
	return fmt.Sprintf("Missing required key '%s' in section '%s'", e.Key, e.Section)
}

func validate(file *ini.File) error {
	for _, section := range requiredSections {
		sec, err := file.GetSection(section.name)
		if err != nil {
			return &ValidationError{Section: section.name}
		}
		for _, key := range section.keys {
			if !sec.HasKey(key) {
				return &ValidationError{Section: section.name, Key: key}
			}
		}
	}
	return nil
}
