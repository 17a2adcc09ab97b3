package instance

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// StartScriptName is the generated Linux launcher. Its contents double as
// the source for descriptor reconstruction, so the -Xmx and -jar tokens
// must stay greppable.
const StartScriptName = "start.sh"

// StartBatchName is the generated Windows launcher.
const StartBatchName = "start.bat"

// WriteLaunchScripts generates start.sh and start.bat recording the java
// path, memory spec and jar name.
func WriteLaunchScripts(dir, jarName, javaPath, memory string) error {
	sh := fmt.Sprintf(`#!/usr/bin/env bash
cd "$(dirname "$0")"
%s -Xms%s -Xmx%s -jar "%s" nogui
`, javaPath, memory, memory, jarName)
	shPath := filepath.Join(dir, StartScriptName)
	if err := os.WriteFile(shPath, []byte(sh), 0755); err != nil {
		return fmt.Errorf("failed to write %s: %w", StartScriptName, err)
	}

	bat := fmt.Sprintf("@echo off\r\ncd /d %%~dp0\r\n%s -Xms%s -Xmx%s -jar \"%s\" nogui\r\npause\r\n",
		javaPath, memory, memory, jarName)
	batPath := filepath.Join(dir, StartBatchName)
	if err := os.WriteFile(batPath, []byte(bat), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", StartBatchName, err)
	}

	return nil
}

// WriteEULA accepts the Mojang EULA on behalf of the operator.
func WriteEULA(dir string) error {
	return os.WriteFile(filepath.Join(dir, "eula.txt"), []byte("eula=true\n"), 0644)
}

// WriteDefaultProperties seeds a fresh server.properties so first boot
// does not stall on interactive questions.
func WriteDefaultProperties(dir string) error {
	props := []string{
		fmt.Sprintf("# Generated %d", time.Now().Unix()),
		"motd=A Minecraft Server",
		"online-mode=true",
		"enable-command-block=false",
		"white-list=false",
		"view-distance=10",
		"simulation-distance=10",
		"max-players=20",
		"enable-status=true",
	}
	content := strings.Join(props, "\n") + "\n"
	return os.WriteFile(filepath.Join(dir, "server.properties"), []byte(content), 0644)
}
