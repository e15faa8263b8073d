package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"leaveflow/internal/domain"
)

func TestParseRole(t *testing.T) {
	t.Run("success round trip", func(t *testing.T) {
		roles := []domain.Role{
			domain.RoleEmployee,
			domain.RoleManager,
			domain.RoleDepartmentDirector,
			domain.RoleExecutive,
			domain.RoleHR,
		}
		for _, role := range roles {
			parsed, ok := domain.ParseRole(role.String())
			assert.True(t, ok)
			assert.Equal(t, role, parsed)
		}
	})

	t.Run("negative unknown label degrades to employee", func(t *testing.T) {
		parsed, ok := domain.ParseRole("INTERN")
		assert.False(t, ok)
		assert.Equal(t, domain.RoleEmployee, parsed)
	})
}

func TestCapabilities(t *testing.T) {
	t.Run("plain employee can do nothing administrative", func(t *testing.T) {
		caps := domain.Capabilities(domain.RoleEmployee)
		assert.False(t, caps.CanApprove)
		assert.False(t, caps.CanAdminCancel)
		assert.False(t, caps.CanVerifyDocuments)
		assert.Equal(t, domain.SignatureEmployee, caps.SignatureSlot)
	})

	t.Run("manager approves but cannot admin cancel", func(t *testing.T) {
		caps := domain.Capabilities(domain.RoleManager)
		assert.True(t, caps.CanApprove)
		assert.False(t, caps.CanAdminCancel)
		assert.Equal(t, domain.SignatureManager, caps.SignatureSlot)
	})

	t.Run("only hr verifies documents", func(t *testing.T) {
		for _, role := range []domain.Role{
			domain.RoleEmployee, domain.RoleManager,
			domain.RoleDepartmentDirector, domain.RoleExecutive,
		} {
			assert.False(t, domain.Capabilities(role).CanVerifyDocuments, role.String())
		}
		assert.True(t, domain.Capabilities(domain.RoleHR).CanVerifyDocuments)
	})

	t.Run("escalation ranks increase up the chart", func(t *testing.T) {
		assert.Less(t,
			domain.Capabilities(domain.RoleEmployee).EscalationRank,
			domain.Capabilities(domain.RoleManager).EscalationRank,
		)
		assert.Less(t,
			domain.Capabilities(domain.RoleManager).EscalationRank,
			domain.Capabilities(domain.RoleDepartmentDirector).EscalationRank,
		)
		assert.Less(t,
			domain.Capabilities(domain.RoleDepartmentDirector).EscalationRank,
			domain.Capabilities(domain.RoleExecutive).EscalationRank,
		)
	})
}
