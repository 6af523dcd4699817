package auth

import (
	"bufio"
	"compress/gzip"
	_ "embed"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	// bcrypt rejects longer input.
	maxPasswordBytes = 72
	maxSimilarity    = 0.7
)

//go:embed common_passwords.txt
var commonPasswordList string

var (
	commonPasswords     map[string]struct{}
	commonPasswordsOnce sync.Once
	commonPasswordsMu   sync.RWMutex

	dummyHash     []byte
	dummyHashOnce sync.Once

	nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]+`)
)

// UserAttribute is a named user value a password must not resemble.
type UserAttribute struct {
	Name  string
	Value string
}

// HashPassword returns a salted bcrypt hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BurnPasswordCheck performs a comparison against a throwaway hash so that a
// login for an unknown user costs the same as one with a wrong password.
func BurnPasswordCheck(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("cryptodesk-timing-equalizer"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// ValidatePassword applies the password policy and returns every violated rule.
func ValidatePassword(password string, attrs ...UserAttribute) []string {
	var problems []string

	if utf8.RuneCountInString(password) < minPasswordLength {
		problems = append(problems, fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLength))
	}
	if len(password) > maxPasswordBytes {
		problems = append(problems, fmt.Sprintf("This password is too long. It must contain at most %d bytes.", maxPasswordBytes))
	}
	if name, ok := similarAttribute(password, attrs); ok {
		problems = append(problems, fmt.Sprintf("The password is too similar to the %s.", name))
	}
	if isCommonPassword(password) {
		problems = append(problems, "This password is too common.")
	}
	if isNumeric(password) {
		problems = append(problems, "This password is entirely numeric.")
	}
	return problems
}

func similarAttribute(password string, attrs []UserAttribute) (string, bool) {
	pw := strings.ToLower(password)
	pwChars := splitChars(pw)
	for _, attr := range attrs {
		value := strings.ToLower(strings.TrimSpace(attr.Value))
		if value == "" {
			continue
		}
		parts := append(nonWord.Split(value, -1), value)
		for _, part := range parts {
			if part == "" || exceedsLengthRatio(pw, part) {
				continue
			}
			if difflib.NewMatcher(pwChars, splitChars(part)).QuickRatio() >= maxSimilarity {
				return attr.Name, true
			}
		}
	}
	return "", false
}

// exceedsLengthRatio skips attribute parts far too short to make a long
// password guessable.
func exceedsLengthRatio(password, value string) bool {
	pwLen := float64(utf8.RuneCountInString(password))
	valueLen := float64(utf8.RuneCountInString(value))
	return pwLen >= 10*valueLen && valueLen < maxSimilarity/2*pwLen
}

func splitChars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func loadEmbeddedCommonPasswords() {
	commonPasswordsOnce.Do(func() {
		commonPasswords = make(map[string]struct{}, 1024)
		addCommonPasswords(strings.NewReader(commonPasswordList))
	})
}

func addCommonPasswords(r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		line := strings.ToLower(strings.TrimSpace(sc.Text()))
		if line == "" {
			continue
		}
		commonPasswords[line] = struct{}{}
		n++
	}
	return n, sc.Err()
}

// LoadCommonPasswords merges a newline separated password list into the
// embedded one. Files ending in .gz are decompressed.
func LoadCommonPasswords(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open common password list: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return 0, fmt.Errorf("read common password list: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	loadEmbeddedCommonPasswords()
	commonPasswordsMu.Lock()
	defer commonPasswordsMu.Unlock()
	n, err := addCommonPasswords(r)
	if err != nil {
		return n, fmt.Errorf("read common password list: %w", err)
	}
	return n, nil
}

func isCommonPassword(password string) bool {
	loadEmbeddedCommonPasswords()
	commonPasswordsMu.RLock()
	defer commonPasswordsMu.RUnlock()
	_, ok := commonPasswords[strings.ToLower(strings.TrimSpace(password))]
	return ok
}

func isNumeric(password string) bool {
	if password == "" {
		return false
	}
	for _, r := range password {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
