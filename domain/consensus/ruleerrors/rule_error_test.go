package ruleerrors

import (
	"testing"

	"github.com/pkg/errors"
)

func TestNewErrInvalidTransactionInBlock(t *testing.T) {
	outer := NewErrInvalidTransactionInBlock(3, errors.Wrapf(ErrExpiredTransaction, "expired at %d", 10))
	expectedOuterErr := "ErrInvalidTransactionInBlock: transaction #3: expired at 10: ErrExpiredTransaction"

	inner := &ErrInvalidTransactionInBlock{}
	if !errors.As(outer, inner) {
		t.Fatal("TestNewErrInvalidTransactionInBlock: Outer should contain ErrInvalidTransactionInBlock in it")
	}
	if inner.Index != 3 {
		t.Fatalf("TestNewErrInvalidTransactionInBlock: Expected index 3, found: %d", inner.Index)
	}

	rule := &RuleError{}
	if !errors.As(outer, rule) {
		t.Fatal("TestNewErrInvalidTransactionInBlock: Outer should contain RuleError in it")
	}
	if rule.message != "ErrInvalidTransactionInBlock" {
		t.Fatalf("TestNewErrInvalidTransactionInBlock: Expected message = 'ErrInvalidTransactionInBlock', found: '%s'", rule.message)
	}
	if !errors.Is(outer, ErrExpiredTransaction) {
		t.Fatal("TestNewErrInvalidTransactionInBlock: Outer should wrap ErrExpiredTransaction")
	}
	if errors.Is(outer, ErrDuplicateTransaction) {
		t.Fatal("TestNewErrInvalidTransactionInBlock: Outer should not match ErrDuplicateTransaction")
	}
	if outer.Error() != expectedOuterErr {
		t.Fatalf("TestNewErrInvalidTransactionInBlock: Expected %s. found: %s", expectedOuterErr, outer.Error())
	}
}

func TestErrorClasses(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		isRule  bool
		isFatal bool
	}{
		{"wrapped rule error", errors.Wrapf(ErrBlockTooBig, "size %d", 100), true, false},
		{"wrapped fatal error", errors.Wrap(ErrUndoHistoryExceeded, "head 1000"), false, true},
		{"block log io", NewErrBlockLogIO(errors.New("disk full")), false, true},
		{"plain error", errors.New("plain"), false, false},
		{"nil", nil, false, false},
	}
	for _, test := range tests {
		if IsRuleError(test.err) != test.isRule {
			t.Fatalf("TestErrorClasses: %s: expected IsRuleError %t", test.name, test.isRule)
		}
		if IsFatal(test.err) != test.isFatal {
			t.Fatalf("TestErrorClasses: %s: expected IsFatal %t", test.name, test.isFatal)
		}
	}
}
