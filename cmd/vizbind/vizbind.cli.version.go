package main

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// versionCmd prints build information
type versionCmd struct {
	Format string `default:"text" enum:"text,json" help:"Output format." short:"F"`
}

// versionInfo is the version output
type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Branch    string `json:"branch"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// versionsFile mirrors versions.yaml
type versionsFile struct {
	Project struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"project"`
	Git struct {
		Commit string `yaml:"commit"`
		Branch string `yaml:"branch"`
	} `yaml:"git"`
	Build struct {
		Time      string `yaml:"time"`
		GoVersion string `yaml:"go_version"`
	} `yaml:"build"`
}

// versionsFilePaths are searched in order for versions.yaml
var versionsFilePaths = []string{"versions.yaml", "../versions.yaml", "../../versions.yaml"}

func (c *versionCmd) Run(app *appContext) error {
	info := loadVersionInfo(versionsFilePaths)

	if c.Format == OutputFormatJSON {
		encoded, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return renderFailure(ErrMsgEncodeFailed, err)
		}
		fmt.Fprintln(app.stdout, string(encoded))
		return nil
	}

	fmt.Fprintf(app.stdout, VersionTextTemplate,
		info.Version, info.Commit, info.Branch, info.BuildTime, info.GoVersion)
	return nil
}

// loadVersionInfo reads the first parseable versions file in paths
func loadVersionInfo(paths []string) *versionInfo {
	info := &versionInfo{
		Version:   VersionUnknown,
		Commit:    VersionUnknown,
		Branch:    VersionUnknown,
		BuildTime: VersionUnknown,
		GoVersion: runtime.Version(),
	}

	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var vf versionsFile
		if err := yaml.Unmarshal(raw, &vf); err != nil {
			continue
		}

		if vf.Project.Version != "" {
			info.Version = vf.Project.Version
		}
		if vf.Git.Commit != "" {
			info.Commit = vf.Git.Commit
		}
		if vf.Git.Branch != "" {
			info.Branch = vf.Git.Branch
		}
		if vf.Build.Time != "" {
			info.BuildTime = vf.Build.Time
		}
		if vf.Build.GoVersion != "" {
			info.GoVersion = vf.Build.GoVersion
		}
		break
	}
	return info
}
