// Package version версия протокола синхронизации клиента и relay.
package version

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Header заголовок с версией протокола в каждом запросе и ответе
const Header = "Gophistory-Version"

// Protocol текущая версия протокола
const Protocol = "1.0.0"

// Compatible совместимы ли версии: совпадает мажорная часть
func Compatible(local, remote string) (bool, error) {
	l, err := canonical(local)
	if err != nil {
		return false, err
	}
	r, err := canonical(remote)
	if err != nil {
		return false, err
	}

	return semver.Major(l) == semver.Major(r), nil
}

// Newer true, если remote новее local
func Newer(local, remote string) bool {
	l, errL := canonical(local)
	r, errR := canonical(remote)
	if errL != nil || errR != nil {
		return false
	}
	return semver.Compare(r, l) > 0
}

func canonical(v string) (string, error) {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", fmt.Errorf("invalid protocol version %q", v)
	}
	return v, nil
}
