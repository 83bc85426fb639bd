package model

// Credentials are the secrets a run needs before any session may open.
type Credentials struct {
	BrowserAPIKey    string
	BrowserProjectID string
	ModelAPIKey      string
}

// Validate returns a ConfigurationError listing every absent credential.
func (c Credentials) Validate() error {
	var missing []string
	if c.BrowserAPIKey == "" {
		missing = append(missing, "browser API key")
	}
	if c.BrowserProjectID == "" {
		missing = append(missing, "browser project id")
	}
	if c.ModelAPIKey == "" {
		missing = append(missing, "model API key")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}
