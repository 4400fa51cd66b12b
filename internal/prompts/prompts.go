// Package prompts holds the instruction scripts the relays prepend to every upstream call.
// Scripts are versioned data files so wording can change without touching relay code.
package prompts

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
)

//go:embed scripts/*.txt
var scriptFS embed.FS

const (
	NameChat       = "chat"
	NameExtraction = "extraction"
)

type Script struct {
	Name    string
	Version string
	// Text is the system turn.
	Text string
	// Lead is the text that opens the user turn, when the script defines one.
	Lead string
}

func Chat(version string) (Script, error) {
	return Load(NameChat, version)
}

func Extraction(version string) (Script, error) {
	return Load(NameExtraction, version)
}

// Load reads scripts/<name>_<version>.txt and the optional <name>_<version>.lead.txt.
func Load(name, version string) (Script, error) {
	base := fmt.Sprintf("scripts/%s_%s", name, version)

	text, err := fs.ReadFile(scriptFS, base+".txt")
	if err != nil {
		return Script{}, fmt.Errorf("unknown %s script version %q (available: %s)",
			name, version, strings.Join(versions(name), ", "))
	}

	script := Script{Name: name, Version: version, Text: string(text)}

	if lead, err := fs.ReadFile(scriptFS, base+".lead.txt"); err == nil {
		script.Lead = string(lead)
	}

	return script, nil
}

// versions lists the versions available for a script name.
func versions(name string) []string {
	entries, err := fs.ReadDir(scriptFS, "scripts")
	if err != nil {
		return nil
	}

	var versions []string
	prefix := name + "_"
	for _, e := range entries {
		file := e.Name()
		if !strings.HasPrefix(file, prefix) || strings.HasSuffix(file, ".lead.txt") {
			continue
		}
		versions = append(versions, strings.TrimSuffix(strings.TrimPrefix(file, prefix), ".txt"))
	}
	return versions
}
