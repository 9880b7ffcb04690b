package deployonce

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ClientSettings represents the data stored in the user's config file, by
// default located at ~/.travis-deploy-once.yml. Every value can be
// overridden on the command line.
type ClientSettings struct {
	GithubToken   string `yaml:"github_token,omitempty"`
	TravisURL     string `yaml:"travis_url,omitempty"`
	Pro           *bool  `yaml:"pro,omitempty"`
	BuildLeaderID int    `yaml:"build_leader_id,omitempty"`
	VersionKey    string `yaml:"version_key,omitempty"`

	LoadedFrom string `yaml:"-"`
}

// NewClientSettings loads the settings file at fn, or the default file in
// the user's home directory when fn is empty. A missing default file is not
// an error and yields empty settings; a missing explicit file is.
func NewClientSettings(fn string) (*ClientSettings, error) {
	path := fn
	if path == "" {
		home, err := homedir.Dir()
		if err != nil {
			grip.Debug(errors.Wrap(err, "finding home directory"))
			return &ClientSettings{}, nil
		}
		path = filepath.Join(home, DefaultClientConfig)
		if !isValidPath(path) {
			return &ClientSettings{}, nil
		}
	}

	path, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrapf(err, "expanding path '%s'", fn)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading configuration from file '%s'", path)
	}

	conf := &ClientSettings{}
	if err = yaml.Unmarshal(data, conf); err != nil {
		return nil, errors.Wrapf(err, "reading YAML data from configuration file '%s'", path)
	}
	conf.LoadedFrom = path

	return conf, nil
}

func isValidPath(path string) bool {
	stat, err := os.Stat(path)
	if os.IsNotExist(err) || err != nil || stat.IsDir() {
		return false
	}
	return true
}
