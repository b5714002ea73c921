// Package prompt читает ввод пользователя в терминале
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Line печатает приглашение в stderr и читает строку из stdin
func Line(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("ошибка чтения ввода: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Password читает пароль без эха. Вне терминала читается обычная строка.
func Password(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return Line(label)
	}

	fmt.Fprint(os.Stderr, label)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения пароля: %w", err)
	}
	return string(password), nil
}

// NewPassword читает пароль дважды и проверяет совпадение
func NewPassword(label string) (string, error) {
	password, err := Password(label)
	if err != nil {
		return "", err
	}

	confirm, err := Password("Повторите: ")
	if err != nil {
		return "", err
	}

	if password != confirm {
		return "", errors.New("пароли не совпадают")
	}
	return password, nil
}
