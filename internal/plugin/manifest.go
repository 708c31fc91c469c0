package plugin

// ID identifies the extension to the host application.
const ID = "com.mattermost.copilot-extension"

// Manifest describes the extension to the host: identity, bundle and settings.
type Manifest struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Version          string         `json:"version"`
	MinServerVersion string         `json:"min_server_version"`
	Webapp           Webapp         `json:"webapp"`
	SettingsSchema   SettingsSchema `json:"settings_schema"`
}

// Webapp points the host at the client bundle.
type Webapp struct {
	BundlePath string `json:"bundle_path"`
}

// SettingsSchema lists the settings the host exposes to administrators.
type SettingsSchema struct {
	Header   string    `json:"header"`
	Footer   string    `json:"footer"`
	Settings []Setting `json:"settings"`
}

// Setting is one administrator-editable value.
type Setting struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
	HelpText    string `json:"help_text"`
	Placeholder string `json:"placeholder,omitempty"`
	Default     string `json:"default"`
}

// DefaultManifest returns the manifest served to the host.
func DefaultManifest() Manifest {
	return Manifest{
		ID:               ID,
		Name:             "Copilot Extension",
		Version:          "1.0.0",
		MinServerVersion: "10.0.0",
		Webapp:           Webapp{BundlePath: "webapp/dist/main.js"},
		SettingsSchema: SettingsSchema{
			Header: "Configure Copilot Extension",
			Footer: "This plugin extends Mattermost with AI capabilities.",
			Settings: []Setting{
				{
					Key:         "BackendURL",
					DisplayName: "Backend API URL",
					Type:        "text",
					HelpText:    "URL for the NLP backend service",
					Placeholder: "https://your-backend-url.com",
				},
				{
					Key:         "APIKey",
					DisplayName: "Backend API Key",
					Type:        "text",
					HelpText:    "Sent as a bearer token with every backend request",
				},
			},
		},
	}
}
