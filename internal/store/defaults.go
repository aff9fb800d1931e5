package store

// Defaults returns the first-run settings. wispURL is derived from the
// serving host by the caller.
func Defaults(wispURL string) map[string]any {
	return map[string]any{
		KeyEngine:      "https://duckduckgo.com/?q=",
		KeyBackend:     "sc",
		KeyWispURL:     wispURL,
		KeyTransport:   "direct",
		"adBlock":      "on",
		"cloak":        "off",
		"cloakTitle":   "Google",
		"cloakFavicon": "https://www.google.com/favicon.ico",
		"autoCloak":    "off",
		"beforeUnload": "off",
		"panicLoc":     "https://google.com",
		"panicKey":     "`",
		KeyBookmarks: []map[string]string{
			{"name": "Youtube", "icon": "https://www.youtube.com/favicon.ico", "destination": "https://www.youtube.com"},
			{"name": "Google", "icon": "https://www.google.com/favicon.ico", "destination": "https://www.google.com"},
			{"name": "X", "icon": "https://www.x.com/favicon.ico", "destination": "https://www.x.com"},
			{"name": "Spotify", "icon": "https://www.spotify.com/favicon.ico", "destination": "https://www.spotify.com"},
			{"name": "Discord", "icon": "https://www.discord.com/favicon.ico", "destination": "https://www.discord.com"},
		},
	}
}
