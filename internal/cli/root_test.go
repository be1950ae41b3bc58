package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommands(t *testing.T) {
	root := NewRootCmd()
	AddCommands(root)

	found := make(map[string]bool)
	for _, sub := range root.Commands() {
		found[sub.Name()] = true
	}
	for _, want := range []string{"folders", "files", "share", "browse", "config", "upload", "download", "ls"} {
		if !found[want] {
			t.Errorf("command %q not registered", want)
		}
	}
	for _, flag := range []string{"config", "api-url", "token", "entity", "lang", "verbose", "debug"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("--%s flag not found", flag)
		}
	}
}

func TestRootHelp(t *testing.T) {
	root := NewRootCmd()
	AddCommands(root)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"files", "--help"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "upload") || !strings.Contains(out.String(), "export") {
		t.Errorf("files help:\n%s", out.String())
	}
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	t.Setenv("MEDIACENTER_LANGUAGE", "en")
	oldFile, oldLang, oldEntity := cfgFile, lang, entityID
	t.Cleanup(func() { cfgFile, lang, entityID = oldFile, oldLang, oldEntity })

	cfgFile = t.TempDir() + "/none.ini"
	lang, entityID = "fa", "e-42"

	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Language != "fa" || cfg.EntityID != "e-42" {
		t.Errorf("overrides not applied: %q %q", cfg.Language, cfg.EntityID)
	}
}

func TestParseFolderID(t *testing.T) {
	if id, err := parseFolderID("12"); err != nil || id != 12 {
		t.Errorf("parseFolderID(12) = %d, %v", id, err)
	}
	for _, bad := range []string{"0", "-3", "abc", ""} {
		if _, err := parseFolderID(bad); err == nil {
			t.Errorf("parseFolderID(%q) should fail", bad)
		}
	}
}
