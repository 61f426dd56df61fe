package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

type IDType string

const (
	IDTypePush IDType = "push"
)

var validIDTypes = map[IDType]bool{
	IDTypePush: true,
}

var idRegex = regexp.MustCompile(`^push_[0-9]{10}_[0-9a-f]{8}$`)

func GenerateID(idType IDType) (string, error) {
	if !validIDTypes[idType] {
		return "", fmt.Errorf("invalid ID type: %s", idType)
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%010d_%s", idType, time.Now().Unix(), random), nil
}

func ValidateID(id string) bool {
	return idRegex.MatchString(id)
}
