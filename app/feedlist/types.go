package feedlist

// Source is one podcast to archive. Name doubles as the archive folder
// name once spaces are replaced.
type Source struct {
	URL  string `json:"url" yaml:"url"`
	Name string `json:"name" yaml:"name"`
}

// yamlFile is the YAML variant of the feeds file.
type yamlFile struct {
	Feeds []Source `yaml:"feeds"`
}
