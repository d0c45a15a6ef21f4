package themes

// GetDefaultTheme returns the hardcoded Dracula fallback used when no theme
// file is found.
func GetDefaultTheme() *Theme {
	return &Theme{
		Meta: ThemeMeta{
			Name:    "dracula",
			Variant: "dark",
		},
		Colors: ThemeColors{
			Foreground: "#f8f8f2",
			Comment:    "#6272a4",
			Selection:  "#44475a",
			Red:        "#ff5555",
			Yellow:     "#f1fa8c",
			Green:      "#50fa7b",
			Cyan:       "#8be9fd",
			Purple:     "#bd93f9",
			Pink:       "#ff79c6",
		},
	}
}

// GetTheme loads a theme by name from themesDir, falling back to the
// hardcoded default when the file is missing or malformed.
func GetTheme(themesDir, name string) *Theme {
	if themesDir == "" || name == "" {
		return GetDefaultTheme()
	}
	theme, err := LoadThemeByName(themesDir, name)
	if err != nil {
		return GetDefaultTheme()
	}
	return theme
}
