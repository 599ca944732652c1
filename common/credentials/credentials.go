// Package credentials persists the storefront account created by the sign up
// tests so later login tests can reuse it. The file holds a single
// "username:password" line.
package credentials

import (
	"io/ioutil"
	"os"
	"strings"

	"github.com/pkg/errors"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// Save writes username:password to path, replacing any previous content.
func Save(path, username, password string) error {
	if strings.Contains(username, ":") {
		return errors.Errorf("username %q must not contain ':'", username)
	}
	if err := ioutil.WriteFile(path, []byte(username+":"+password), 0600); err != nil {
		return errors.Wrapf(err, "saving credentials to %s", path)
	}
	logf.Log.Info("Saved credentials", "file", path, "username", username)
	return nil
}

// Read returns the pair stored at path. ok is false when the file does not
// exist, is empty or has no separator.
func Read(path string) (username, password string, ok bool, err error) {
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, errors.Wrapf(err, "reading credentials from %s", path)
	}
	line := strings.TrimSpace(string(data))
	parts := strings.SplitN(line, ":", 2)
	if line == "" || len(parts) < 2 {
		return "", "", false, nil
	}
	return parts[0], parts[1], true, nil
}
