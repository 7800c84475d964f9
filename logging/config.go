package logging

// Config is the logging section of devsync.yml.
type Config struct {
	// Level is debug, info, warn or error. DEVSYNC_LOG_LEVEL wins when set.
	Level string `yaml:"level"`
	// ReportCaller adds file and line to every entry. DEVSYNC_LOG_CALLER=true
	// turns it on as well.
	ReportCaller bool           `yaml:"report_caller"`
	File         FileSinkConfig `yaml:"file"`
	Format       FormatConfig   `yaml:"format"`
}

// FileSinkConfig enables the log file the server and `devsync logs` share.
type FileSinkConfig struct {
	Enabled bool `yaml:"enabled"`
	// Path defaults to devsync.log in the state directory's logs folder.
	Path string `yaml:"path"`
	// Format is text or json.
	Format string `yaml:"format,omitempty"`
}

// FormatConfig shapes stderr output.
type FormatConfig struct {
	// Preset is default, simple or json.
	Preset           string `yaml:"preset"`
	DisableTimestamp bool   `yaml:"disable_timestamp"`
	DisableComponent bool   `yaml:"disable_component"`
	// StructuredToStderr is always, auto (only when stderr is not a
	// terminal) or never.
	StructuredToStderr string `yaml:"structured_to_stderr"`
}
