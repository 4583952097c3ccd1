package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
)

// DefaultSettingsFile is the settings file used when no name is given.
const DefaultSettingsFile = "fdeploy.yml"

const parseErrTemplate = "settings file %q could not be parsed.\n" +
	"Common pitfalls include:\n" +
	" - Using the wrong types for fields\n" +
	" - Misspelled or extra fields\n\n" +
	"Parser error: %w"

// ErrNotFound is returned by LoadSettings when the settings file is missing.
var ErrNotFound = errors.New("settings file not found")

// Settings is one deployment target, read from fdeploy.yml.
type Settings struct {
	DeleteOrphans             bool `json:"deleteOrphans"`
	TakeServerOffline         bool `json:"takeServerOffline"`
	ServerOfflineDelaySeconds int  `json:"serverOfflineDelaySeconds"`
	ServerOnlineDelaySeconds  int  `json:"serverOnlineDelaySeconds"`
	WriteRetryDelaySeconds    int  `json:"writeRetryDelaySeconds"`
	RetryCount                int  `json:"retryCount"`
	MaxThreadCount            int  `json:"maxThreadCount"`

	ServerConnection ServerConnection `json:"serverConnection"`
	Project          Project          `json:"project"`
	Paths            Paths            `json:"paths"`
	Offline          Offline          `json:"offline"`
	Transfer         Transfer         `json:"transfer"`

	MetricsFile string `json:"metricsFile,omitempty"`
}

// ServerConnection locates and authenticates against the SMB share.
type ServerConnection struct {
	ServerAddress     string `json:"serverAddress"`
	ShareName         string `json:"shareName"`
	Domain            string `json:"domain,omitempty"`
	UserName          string `json:"userName,omitempty"`
	Password          string `json:"password,omitempty"`
	CredentialsFile   string `json:"credentialsFile,omitempty"`
	Port              int    `json:"port"`
	ConnectTimeoutMs  int    `json:"connectTimeoutMs"`
	ResponseTimeoutMs int    `json:"responseTimeoutMs"`
	RemoteRootPath    string `json:"remoteRootPath"`
}

// Project describes how the publish folder is built.
type Project struct {
	ProjectFilePath    string   `json:"projectFilePath,omitempty"`
	EnvironmentName    string   `json:"environmentName"`
	BuildConfiguration string   `json:"buildConfiguration"`
	TargetFramework    string   `json:"targetFramework"`
	PublishPath        string   `json:"publishPath"`
	BuildCommand       []string `json:"buildCommand,omitempty"`
}

// Paths holds every path list that changes how entries deploy.
type Paths struct {
	OnlineCopyFolderPaths           []string   `json:"onlineCopyFolderPaths,omitempty"`
	OnlineCopyFilePaths             []string   `json:"onlineCopyFilePaths,omitempty"`
	AlwaysOverwritePaths            []string   `json:"alwaysOverwritePaths,omitempty"`
	AlwaysOverwritePathsWithRecurse []string   `json:"alwaysOverwritePathsWithRecurse,omitempty"`
	IgnoreFolderPaths               []string   `json:"ignoreFolderPaths,omitempty"`
	IgnoreFilePaths                 []string   `json:"ignoreFilePaths,omitempty"`
	IgnoreFoldersNamed              []string   `json:"ignoreFoldersNamed,omitempty"`
	IgnoreFilesNamed                []string   `json:"ignoreFilesNamed,omitempty"`
	FileCopies                      []FileCopy `json:"fileCopies,omitempty"`
}

// FileCopy uploads Source (relative to the publish folder) to Destination
// (relative to the remote root) after the main sync.
type FileCopy struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// Offline is the text of the maintenance page.
type Offline struct {
	MetaTitle   string `json:"metaTitle"`
	PageTitle   string `json:"pageTitle"`
	ContentHTML string `json:"contentHtml"`
}

// Transfer tunes uploads.
type Transfer struct {
	ChunkSizeBytes   int    `json:"chunkSizeBytes"`
	BandwidthLimit   string `json:"bandwidthLimit,omitempty"`
	Verify           bool   `json:"verify"`
	SessionPerWorker bool   `json:"sessionPerWorker"`
}

// credentials is the layout of serverConnection.credentialsFile.
type credentials struct {
	Domain   string `json:"domain,omitempty"`
	UserName string `json:"userName,omitempty"`
	Password string `json:"password,omitempty"`
}

// DefaultSettings returns the values used for every field a settings file
// leaves out. Files are decoded over this value.
func DefaultSettings() Settings {
	return Settings{
		DeleteOrphans:             true,
		TakeServerOffline:         true,
		ServerOfflineDelaySeconds: 10,
		WriteRetryDelaySeconds:    10,
		RetryCount:                5,
		ServerConnection: ServerConnection{
			Port:              445,
			ConnectTimeoutMs:  5000,
			ResponseTimeoutMs: 15000,
		},
		Project: Project{
			EnvironmentName:    "Production",
			BuildConfiguration: "Release",
			TargetFramework:    "8.0",
		},
		Offline: Offline{
			MetaTitle:   "Unavailable for Maintenance",
			PageTitle:   "Unavailable for Maintenance",
			ContentHTML: "<p>The website is being updated and should be available shortly. Check back soon!</p>",
		},
		Transfer: Transfer{
			ChunkSizeBytes:   1 << 20,
			SessionPerWorker: true,
		},
	}
}

// SettingsPath maps a target name to its settings file. "" selects
// fdeploy.yml; a bare name selects fdeploy-{name}.yml; anything that looks
// like a path is used as is.
func SettingsPath(name string) string {
	switch {
	case name == "":
		return DefaultSettingsFile
	case strings.HasSuffix(name, ".yml"), strings.HasSuffix(name, ".yaml"),
		strings.ContainsAny(name, `/\`):
		return name
	default:
		return "fdeploy-" + name + ".yml"
	}
}

// LoadSettings reads the settings file at path, overlays the credentials
// file if one is named, and applies defaults. Relative paths inside the file
// are resolved against the file's folder.
func LoadSettings(fs afero.Fs, path string) (Settings, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return Settings{}, fmt.Errorf("expand settings path: %w", err)
	}

	s := DefaultSettings()
	if err := decodeStrict(fs, path, &s); err != nil {
		return Settings{}, err
	}

	base := filepath.Dir(path)
	if cf := s.ServerConnection.CredentialsFile; cf != "" {
		cf, err = resolve(base, cf)
		if err != nil {
			return Settings{}, fmt.Errorf("expand credentials path: %w", err)
		}
		var c credentials
		if err := decodeStrict(fs, cf, &c); err != nil {
			return Settings{}, err
		}
		s.ServerConnection.CredentialsFile = cf
		s.overlayCredentials(c)
	}

	if err := s.ApplyDefaults(base); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func decodeStrict(fs afero.Fs, path string, out any) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.UnmarshalStrict(data, out, yaml.DisallowUnknownFields); err != nil {
		return fmt.Errorf(parseErrTemplate, path, err)
	}
	return nil
}

func (s *Settings) overlayCredentials(c credentials) {
	if c.Domain != "" {
		s.ServerConnection.Domain = c.Domain
	}
	if c.UserName != "" {
		s.ServerConnection.UserName = c.UserName
	}
	if c.Password != "" {
		s.ServerConnection.Password = c.Password
	}
}

// ApplyDefaults fills values that depend on the environment or on other
// fields. base is the folder relative paths are resolved against.
func (s *Settings) ApplyDefaults(base string) error {
	if s.MaxThreadCount <= 0 {
		s.MaxThreadCount = runtime.NumCPU()
	}
	if s.RetryCount < 1 {
		s.RetryCount = 1
	}

	var err error
	if s.Project.ProjectFilePath != "" {
		if s.Project.ProjectFilePath, err = resolve(base, s.Project.ProjectFilePath); err != nil {
			return fmt.Errorf("expand project path: %w", err)
		}
	}
	if s.Project.PublishPath == "" {
		s.Project.PublishPath = filepath.Join("bin", "publish")
	}
	if s.Project.PublishPath, err = resolve(base, s.Project.PublishPath); err != nil {
		return fmt.Errorf("expand publish path: %w", err)
	}
	if s.MetricsFile != "" {
		if s.MetricsFile, err = resolve(base, s.MetricsFile); err != nil {
			return fmt.Errorf("expand metrics path: %w", err)
		}
	}
	return nil
}

func resolve(base, p string) (string, error) {
	p, err := homedir.Expand(p)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	return p, nil
}

// Validate reports every setting that cannot produce a working deployment.
func (s Settings) Validate() error { return s.validate(true) }

// ValidateLocal is Validate for a deployment into a mounted folder, which
// needs no server connection.
func (s Settings) ValidateLocal() error { return s.validate(false) }

func (s Settings) validate(server bool) error {
	var errs []error
	if server && s.ServerConnection.ServerAddress == "" {
		errs = append(errs, errors.New("serverConnection.serverAddress is required"))
	}
	if server && s.ServerConnection.ShareName == "" {
		errs = append(errs, errors.New("serverConnection.shareName is required"))
	}
	if s.Project.PublishPath == "" {
		errs = append(errs, errors.New("project.publishPath is required"))
	}
	for name, v := range map[string]int{
		"serverOfflineDelaySeconds":          s.ServerOfflineDelaySeconds,
		"serverOnlineDelaySeconds":           s.ServerOnlineDelaySeconds,
		"writeRetryDelaySeconds":             s.WriteRetryDelaySeconds,
		"serverConnection.port":              s.ServerConnection.Port,
		"serverConnection.connectTimeoutMs":  s.ServerConnection.ConnectTimeoutMs,
		"serverConnection.responseTimeoutMs": s.ServerConnection.ResponseTimeoutMs,
		"transfer.chunkSizeBytes":            s.Transfer.ChunkSizeBytes,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if _, err := ParseBandwidth(s.Transfer.BandwidthLimit); err != nil {
		errs = append(errs, fmt.Errorf("transfer.bandwidthLimit: %w", err))
	}
	for i, fc := range s.Paths.FileCopies {
		if fc.Source == "" || fc.Destination == "" {
			errs = append(errs, fmt.Errorf("paths.fileCopies[%d] needs source and destination", i))
		}
	}
	return errors.Join(errs...)
}

// OfflineDelay is how long the site stays offline before files are copied.
func (s Settings) OfflineDelay() time.Duration {
	return time.Duration(s.ServerOfflineDelaySeconds) * time.Second
}

func (s Settings) OnlineDelay() time.Duration {
	return time.Duration(s.ServerOnlineDelaySeconds) * time.Second
}

func (s Settings) RetryDelay() time.Duration {
	return time.Duration(s.WriteRetryDelaySeconds) * time.Second
}

func (c ServerConnection) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMs) * time.Millisecond
}

func (c ServerConnection) ResponseTimeout() time.Duration {
	return time.Duration(c.ResponseTimeoutMs) * time.Millisecond
}
