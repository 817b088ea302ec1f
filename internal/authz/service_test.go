package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/payhub-next/internal/constants"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc
}

func TestEnforceAdminWithRolePolicy(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("ops", constants.AuthzObjectRecord, constants.AuthzActionAudit); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}
	if err := svc.SetAdminRoles(1, []string{"ops"}); err != nil {
		t.Fatalf("set admin roles failed: %v", err)
	}

	allow, err := svc.EnforceAdmin(1, constants.AuthzObjectRecord, "AUDIT")
	if err != nil {
		t.Fatalf("enforce allow failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected allow=true")
	}

	allow, err = svc.EnforceAdmin(1, constants.AuthzObjectTransfer, constants.AuthzActionAudit)
	if err != nil {
		t.Fatalf("enforce deny failed: %v", err)
	}
	if allow {
		t.Fatalf("expected allow=false")
	}
}

func TestSetAdminRolesOverride(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("ops", constants.AuthzObjectRecord, constants.AuthzActionView); err != nil {
		t.Fatalf("grant ops policy failed: %v", err)
	}
	if err := svc.GrantRolePolicy("finance", constants.AuthzObjectRefund, constants.AuthzActionView); err != nil {
		t.Fatalf("grant finance policy failed: %v", err)
	}

	if err := svc.SetAdminRoles(2, []string{"ops"}); err != nil {
		t.Fatalf("set first role failed: %v", err)
	}
	if err := svc.SetAdminRoles(2, []string{"finance"}); err != nil {
		t.Fatalf("set second role failed: %v", err)
	}
	roles, err := svc.GetAdminRoles(2)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:finance" {
		t.Fatalf("roles want [role:finance], got=%v", roles)
	}

	allow, err := svc.EnforceAdmin(2, constants.AuthzObjectRecord, constants.AuthzActionView)
	if err != nil {
		t.Fatalf("enforce old role failed: %v", err)
	}
	if allow {
		t.Fatalf("expected old role permission removed")
	}

	allow, err = svc.EnforceAdmin(2, constants.AuthzObjectRefund, constants.AuthzActionView)
	if err != nil {
		t.Fatalf("enforce new role failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected new role permission granted")
	}
}

func TestBootstrapBuiltinRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}

	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	wantRoles := map[string]bool{
		"role:viewer":  true,
		"role:auditor": true,
		"role:finance": true,
		"role:super":   true,
	}
	for _, role := range roles {
		delete(wantRoles, role)
	}
	if len(wantRoles) != 0 {
		t.Fatalf("builtin roles missing: %v", wantRoles)
	}

	if err := svc.SetAdminRoles(3, []string{"auditor"}); err != nil {
		t.Fatalf("set admin roles failed: %v", err)
	}

	// auditor 继承 viewer 的查看权限
	allow, err := svc.EnforceAdmin(3, constants.AuthzObjectRefund, constants.AuthzActionView)
	if err != nil {
		t.Fatalf("enforce inherited view failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected inherited view permission")
	}

	allow, err = svc.EnforceAdmin(3, constants.AuthzObjectChannel, constants.AuthzActionWrite)
	if err != nil {
		t.Fatalf("enforce write failed: %v", err)
	}
	if allow {
		t.Fatalf("expected auditor deny channel write")
	}

	// super 对任意对象动作放行
	if err := svc.SetAdminRoles(4, []string{"super"}); err != nil {
		t.Fatalf("set super role failed: %v", err)
	}
	allow, err = svc.EnforceAdmin(4, constants.AuthzObjectChannel, constants.AuthzActionWrite)
	if err != nil {
		t.Fatalf("enforce super failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected super allow everything")
	}
}
