package cli

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/openalpha/yield-vault/x/vault/types"
)

// ParseDepositIDs parses a comma separated id list such as "1,4,7"
func ParseDepositIDs(s string) ([]uint64, error) {
	var ids []uint64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid deposit id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no deposit ids in %q", s)
	}
	return ids, nil
}

// ParseAmounts splits a comma separated amount list. An empty string means
// no amounts.
func ParseAmounts(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ParseClaim parses one claim written as beneficiary:pct[:hexdata], pct in
// basis points
func ParseClaim(s string) (types.ClaimSplit, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return types.ClaimSplit{}, fmt.Errorf("claim %q must be beneficiary:pct[:hexdata]", s)
	}
	pct, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return types.ClaimSplit{}, fmt.Errorf("claim %q: invalid pct: %w", s, err)
	}
	claim := types.ClaimSplit{Beneficiary: parts[0], Pct: uint32(pct)}
	if len(parts) == 3 {
		if claim.Data, err = hex.DecodeString(parts[2]); err != nil {
			return types.ClaimSplit{}, fmt.Errorf("claim %q: invalid data: %w", s, err)
		}
	}
	return claim, nil
}

// ParseClaims parses every claim argument
func ParseClaims(args []string) ([]types.ClaimSplit, error) {
	claims := make([]types.ClaimSplit, 0, len(args))
	for _, arg := range args {
		claim, err := ParseClaim(arg)
		if err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}
	return claims, nil
}
