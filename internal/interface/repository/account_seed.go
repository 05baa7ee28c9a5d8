package repository

import (
	"context"
	"fmt"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/internal/domain/repository"

	"gopkg.in/yaml.v3"
)

// accountSeed is the YAML shape of an account seed file
type accountSeed struct {
	Accounts []struct {
		ID            string   `yaml:"id"`
		Email         string   `yaml:"email"`
		LinkedEmails  []string `yaml:"linked_emails"`
		FamilyMembers []struct {
			ID      string   `yaml:"id"`
			Name    string   `yaml:"name"`
			Aliases []string `yaml:"aliases"`
		} `yaml:"family_members"`
	} `yaml:"accounts"`
}

// ParseAccountSeed reads a YAML account list
func ParseAccountSeed(data []byte) ([]*entity.Account, error) {
	var seed accountSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse account seed: %w", err)
	}

	accounts := make([]*entity.Account, 0, len(seed.Accounts))
	for _, a := range seed.Accounts {
		if a.ID == "" {
			return nil, fmt.Errorf("account seed entry without id")
		}
		account := &entity.Account{
			ID:           a.ID,
			Email:        a.Email,
			LinkedEmails: a.LinkedEmails,
		}
		for _, m := range a.FamilyMembers {
			account.FamilyMembers = append(account.FamilyMembers, entity.FamilyMember{
				ID:      m.ID,
				Name:    m.Name,
				Aliases: m.Aliases,
			})
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// SeedAccounts upserts every account in a YAML seed and returns how many
// were written
func SeedAccounts(ctx context.Context, accounts repository.AccountRepository, data []byte) (int, error) {
	parsed, err := ParseAccountSeed(data)
	if err != nil {
		return 0, err
	}
	for _, account := range parsed {
		if err := accounts.Upsert(ctx, account); err != nil {
			return 0, err
		}
	}
	return len(parsed), nil
}
