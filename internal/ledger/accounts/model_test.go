package accounts

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	parent := int64(1)

	ok := Account{TenantID: 1, Code: "1201", Name: "Accounts Receivable", Type: TypeAsset}
	require.NoError(t, ok.Validate())

	sub := Account{TenantID: 1, Code: "1201.01", Name: "AR Domestic", Type: TypeAsset, IsSubaccount: true}
	require.ErrorIs(t, sub.Validate(), ErrSubaccountNeedsParent)

	sub.ParentID = &parent
	require.NoError(t, sub.Validate())

	bad := Account{TenantID: 1, Code: "9999", Name: "Mystery", Type: AccountType("OTHER")}
	require.ErrorIs(t, bad.Validate(), ErrInvalidType)
}
