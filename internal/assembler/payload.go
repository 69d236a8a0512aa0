package assembler

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kev129/deleton/internal/models"
	"gopkg.in/yaml.v3"
)

const payloadDelimiter = "= "

var validate = validator.New()

// scalar 保留标量的原始文本（date_of_birth 可能是数字也可能是字符串）
type scalar string

func (s *scalar) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("expected scalar, got %s", nodeKind(node))
	}
	*s = scalar(node.Value)
	return nil
}

// sessionPayload SYSTEM 消息中内嵌的用户数据
// 上游以 {'key': value, ...} 形式输出，按 YAML flow mapping 解析，不执行任何代码
type sessionPayload struct {
	UserID      *int64   `yaml:"user_id" validate:"required"`
	Name        *string  `yaml:"name" validate:"required"`
	Gender      *string  `yaml:"gender" validate:"required"`
	DateOfBirth *scalar  `yaml:"date_of_birth" validate:"required"`
	HeightCM    *float64 `yaml:"height_cm" validate:"required"`
	WeightKG    *float64 `yaml:"weight_kg" validate:"required"`
	Email       *string  `yaml:"email_address" validate:"required"`
}

// parseSessionStart 解析会话开始消息，返回用户记录（不含 ride_id）
func parseSessionStart(text string) (models.User, error) {
	idx := strings.LastIndex(text, payloadDelimiter)
	if idx < 0 {
		return models.User{}, malformed(KindSessionStart, "delimiter %q not found", payloadDelimiter)
	}
	raw := strings.TrimSpace(text[idx+len(payloadDelimiter):])

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		return models.User{}, malformed(KindSessionStart, "payload does not parse: %v", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 || doc.Content[0].Kind != yaml.MappingNode {
		return models.User{}, malformed(KindSessionStart, "payload is not a mapping")
	}

	var p sessionPayload
	if err := doc.Content[0].Decode(&p); err != nil {
		return models.User{}, malformed(KindSessionStart, "payload has invalid field: %v", err)
	}
	if err := validate.Struct(&p); err != nil {
		return models.User{}, malformed(KindSessionStart, "missing required keys: %s", missingKeys(err))
	}

	first, last, err := splitName(*p.Name)
	if err != nil {
		return models.User{}, err
	}

	return models.User{
		UserID:      *p.UserID,
		FirstName:   first,
		LastName:    last,
		Gender:      *p.Gender,
		DateOfBirth: string(*p.DateOfBirth),
		Height:      *p.HeightCM,
		Weight:      *p.WeightKG,
		Email:       *p.Email,
	}, nil
}

// splitName 两个词为 (名, 姓)；三个词时第一个词视为称谓丢弃
func splitName(name string) (string, string, error) {
	tokens := strings.Fields(name)
	switch len(tokens) {
	case 2:
		return tokens[0], tokens[1], nil
	case 3:
		return tokens[1], tokens[2], nil
	default:
		return "", "", &UnparseableNameError{Name: name, Tokens: len(tokens)}
	}
}

var yamlKeys = map[string]string{
	"UserID":      "user_id",
	"Name":        "name",
	"Gender":      "gender",
	"DateOfBirth": "date_of_birth",
	"HeightCM":    "height_cm",
	"WeightKG":    "weight_kg",
	"Email":       "email_address",
}

func missingKeys(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	keys := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		keys = append(keys, yamlKeys[fe.StructField()])
	}
	return strings.Join(keys, ", ")
}

func nodeKind(node *yaml.Node) string {
	switch node.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.AliasNode:
		return "alias"
	default:
		return "node"
	}
}
