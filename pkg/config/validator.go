package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ConfigValidator struct {
	validate *validator.Validate
}

// NewValidator cria uma nova instância do validador
func NewValidator() *ConfigValidator {
	return &ConfigValidator{
		validate: validator.New(),
	}
}

// Validate realiza validações estruturais (tags) e semânticas (lógica)
func (cv *ConfigValidator) Validate(cfg *Config) error {
	// 1. Validação Estrutural (Tags do struct: required, oneof, etc)
	if err := cv.validate.Struct(cfg); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			var errMsgs []string
			for _, e := range validationErrors {
				errMsgs = append(errMsgs, fmt.Sprintf("Campo '%s' falhou na regra '%s'", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("erros de validação estrutural:\n- %s", strings.Join(errMsgs, "\n- "))
		}
		return fmt.Errorf("erro de validação estrutural: %w", err)
	}

	// 2. Validação Semântica
	if err := cv.validateSemantics(cfg); err != nil {
		return fmt.Errorf("erro de validação semântica: %w", err)
	}

	return nil
}

func (cv *ConfigValidator) validateSemantics(cfg *Config) error {
	if cfg.Store.BatchBaseDelay > cfg.Store.BatchMaxDelay {
		return fmt.Errorf("STORE_BATCH_BASE_DELAY (%s) maior que STORE_BATCH_MAX_DELAY (%s)",
			cfg.Store.BatchBaseDelay, cfg.Store.BatchMaxDelay)
	}

	for action, rule := range cfg.Rules {
		if strings.TrimSpace(rule) == "" {
			return fmt.Errorf("regra de autorização vazia para a ação '%s'", action)
		}
	}

	// Referências de segredo que sobraram indicam que o resolvedor não rodou
	if ref, ok := firstUnresolved(cfg); ok {
		return fmt.Errorf("referência de segredo não resolvida: '%s'", ref)
	}

	return nil
}
