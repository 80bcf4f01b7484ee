package model

import (
	"testing"
)

func testKey(b byte) PublicKey {
	var key PublicKey
	for i := range key {
		key[i] = b + byte(i)
	}
	return key
}

func TestValidateAccountName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"alice", true},
		{"bob", true},
		{"init-producer", true},
		{"producer1", true},
		{"sub.domain", true},
		{"ab", false},
		{"Alice", false},
		{"1alice", false},
		{"alice-", false},
		{"al.ice", false},
		{"this-name-is-way-too-long", false},
		{"ali_ce", false},
		{"", false},
	}
	for _, test := range tests {
		err := ValidateAccountName(test.name)
		if test.valid && err != nil {
			t.Fatalf("TestValidateAccountName: %q: unexpected error: %s", test.name, err)
		}
		if !test.valid && err == nil {
			t.Fatalf("TestValidateAccountName: %q: expected an error", test.name)
		}
	}
}

func TestBlockIDNumAndPrefix(t *testing.T) {
	var digest [HashSize]byte
	for i := range digest {
		digest[i] = byte(i + 1)
	}
	id := NewBlockID(digest, 0x01020304)
	if id.Num() != 0x01020304 {
		t.Fatalf("TestBlockIDNumAndPrefix: expected num 0x01020304, got %x", id.Num())
	}
	if id.Prefix() != 0x08070605 {
		t.Fatalf("TestBlockIDNumAndPrefix: expected prefix 0x08070605, got %x", id.Prefix())
	}

	parsed, err := BlockIDFromString(id.String())
	if err != nil {
		t.Fatalf("TestBlockIDNumAndPrefix: BlockIDFromString: %s", err)
	}
	if parsed != id {
		t.Fatalf("TestBlockIDNumAndPrefix: parsed id %s differs from %s", parsed, id)
	}
}

func TestPublicKeyString(t *testing.T) {
	key := testKey(7)
	text := key.String()
	parsed, err := ParsePublicKey(text)
	if err != nil {
		t.Fatalf("TestPublicKeyString: ParsePublicKey(%s): %s", text, err)
	}
	if parsed != key {
		t.Fatalf("TestPublicKeyString: parsed key differs")
	}

	corrupted := []byte(text)
	last := len(corrupted) - 1
	if corrupted[last] == '2' {
		corrupted[last] = '3'
	} else {
		corrupted[last] = '2'
	}
	if _, err := ParsePublicKey(string(corrupted)); err == nil {
		t.Fatalf("TestPublicKeyString: corrupted key unexpectedly parsed")
	}
	if _, err := ParsePublicKey("XYZ" + text[len(PublicKeyPrefix):]); err == nil {
		t.Fatalf("TestPublicKeyString: key with a wrong prefix unexpectedly parsed")
	}
}

func TestAuthorityValidate(t *testing.T) {
	tests := []struct {
		name      string
		authority Authority
		valid     bool
	}{
		{"single key", NewKeyAuthority(testKey(1)), true},
		{"zero threshold", Authority{KeyAuths: []KeyWeight{{testKey(1), 1}}}, false},
		{"impossible", Authority{WeightThreshold: 3, KeyAuths: []KeyWeight{{testKey(1), 1}, {testKey(2), 1}}}, false},
		{"duplicate key", Authority{WeightThreshold: 1, KeyAuths: []KeyWeight{{testKey(1), 1}, {testKey(1), 1}}}, false},
		{"zero key", Authority{WeightThreshold: 1, KeyAuths: []KeyWeight{{PublicKey{}, 1}}}, false},
		{"multisig", Authority{
			WeightThreshold: 2,
			AccountAuths:    []AccountWeight{{"alice", 1}},
			KeyAuths:        []KeyWeight{{testKey(1), 1}},
		}, true},
		{"bad account", Authority{WeightThreshold: 1, AccountAuths: []AccountWeight{{"A", 1}}}, false},
	}
	for _, test := range tests {
		err := test.authority.Validate()
		if test.valid && err != nil {
			t.Fatalf("TestAuthorityValidate: %s: unexpected error: %s", test.name, err)
		}
		if !test.valid && err == nil {
			t.Fatalf("TestAuthorityValidate: %s: expected an error", test.name)
		}
	}
}

func TestRequiredAuthorities(t *testing.T) {
	tx := Transaction{Operations: []Operation{
		NewOperation(&TransferOperation{From: "bob", To: "alice", Amount: 1}),
		NewOperation(&TransferOperation{From: "alice", To: "bob", Amount: 1}),
		NewOperation(&AccountUpdateOperation{Account: "carol", Owner: NewKeyAuthority(testKey(3))}),
		NewOperation(&CustomOperation{RequiredPostingAuths: []string{"dave"}, Data: []byte{1}}),
	}}
	required := tx.RequiredAuthorities()

	active := required.Sorted(AuthorityActive)
	if len(active) != 2 || active[0] != "alice" || active[1] != "bob" {
		t.Fatalf("TestRequiredAuthorities: unexpected active authorities %v", active)
	}
	owner := required.Sorted(AuthorityOwner)
	if len(owner) != 1 || owner[0] != "carol" {
		t.Fatalf("TestRequiredAuthorities: unexpected owner authorities %v", owner)
	}
	posting := required.Sorted(AuthorityPosting)
	if len(posting) != 1 || posting[0] != "dave" {
		t.Fatalf("TestRequiredAuthorities: unexpected posting authorities %v", posting)
	}
}

func TestOperationValidate(t *testing.T) {
	tests := []struct {
		name  string
		body  OperationBody
		valid bool
	}{
		{"transfer", &TransferOperation{From: "alice", To: "bob", Amount: 10}, true},
		{"zero transfer", &TransferOperation{From: "alice", To: "bob"}, false},
		{"producer without url", &ProducerUpdateOperation{Owner: "alice", MaximumBlockSize: 1}, false},
		{"escrow agent is party", &EscrowTransferOperation{
			From: "alice", To: "bob", Agent: "bob", Amount: 1, EscrowExpiration: 1,
		}, false},
		{"escrow release to agent", &EscrowReleaseOperation{
			From: "alice", To: "bob", Agent: "carol", Who: "carol", Receiver: "carol", Amount: 1,
		}, false},
		{"custom without authority", &CustomOperation{ID: 1}, false},
	}
	for _, test := range tests {
		op := NewOperation(test.body)
		if op.Type() != test.body.Type() {
			t.Fatalf("TestOperationValidate: %s: wrapped type %s, want %s", test.name, op.Type(), test.body.Type())
		}
		err := op.Validate()
		if test.valid && err != nil {
			t.Fatalf("TestOperationValidate: %s: unexpected error: %s", test.name, err)
		}
		if !test.valid && err == nil {
			t.Fatalf("TestOperationValidate: %s: expected an error", test.name)
		}
	}

	unknown := Operation{Kind: 200}
	if err := unknown.Validate(); err == nil {
		t.Fatalf("TestOperationValidate: unknown operation type unexpectedly validated")
	}
}

func TestBlockSerialization(t *testing.T) {
	tx := SignedTransaction{
		Transaction: Transaction{
			RefBlockNum:    7,
			RefBlockPrefix: 99,
			Expiration:     1000,
			Operations: []Operation{
				NewOperation(&TransferOperation{From: "alice", To: "bob", Amount: 5, Memo: "hi"}),
				NewOperation(&ProducerVoteOperation{Account: "alice", Producer: "bob", Approve: true}),
			},
		},
		Signatures: []TransactionSignature{{Key: testKey(1)}},
	}
	block := &SignedBlock{
		SignedBlockHeader: SignedBlockHeader{
			BlockHeader: BlockHeader{
				Previous:  NewBlockID([HashSize]byte{1}, 41),
				Timestamp: 12345,
				Producer:  "alice",
				Extensions: []HeaderExtension{
					NewRunningVersionExtension(NewVersion(0, 1, 0)),
					NewHardforkVoteExtension(NewVersion(0, 2, 0), 5000),
				},
			},
		},
		Transactions: []SignedTransaction{tx},
	}
	block.TransactionMerkleRoot = block.CalculateMerkleRoot()

	serialized, err := SerializeBlock(block)
	if err != nil {
		t.Fatalf("TestBlockSerialization: SerializeBlock: %s", err)
	}
	if len(serialized) != block.SerializedSize() {
		t.Fatalf("TestBlockSerialization: SerializedSize %d differs from %d", block.SerializedSize(), len(serialized))
	}
	decoded, err := DeserializeBlock(serialized)
	if err != nil {
		t.Fatalf("TestBlockSerialization: DeserializeBlock: %s", err)
	}
	if decoded.ID() != block.ID() {
		t.Fatalf("TestBlockSerialization: decoded id %s differs from %s", decoded.ID(), block.ID())
	}
	if decoded.Num() != 42 {
		t.Fatalf("TestBlockSerialization: expected block number 42, got %d", decoded.Num())
	}
	if decoded.CalculateMerkleRoot() != block.TransactionMerkleRoot {
		t.Fatalf("TestBlockSerialization: decoded merkle root differs")
	}
	vote := decoded.Extensions[1]
	if vote.Type() != ExtHardforkVote || vote.HardforkVote.Time != 5000 {
		t.Fatalf("TestBlockSerialization: unexpected hardfork vote extension %+v", vote)
	}
	decodedOp := decoded.Transactions[0].Operations[1]
	if decodedOp.Type() != OpProducerVote || !decodedOp.ProducerVote.Approve {
		t.Fatalf("TestBlockSerialization: unexpected decoded operation %+v", decodedOp)
	}
	if decoded.Transactions[0].ID() != tx.ID() {
		t.Fatalf("TestBlockSerialization: decoded transaction id differs")
	}
}

func TestTransactionIDIgnoresSignatures(t *testing.T) {
	tx := SignedTransaction{Transaction: Transaction{
		Expiration: 10,
		Operations: []Operation{NewOperation(&TransferOperation{From: "alice", To: "bob", Amount: 1})},
	}}
	unsignedID := tx.ID()
	unsignedDigest := tx.Digest()
	tx.Signatures = append(tx.Signatures, TransactionSignature{Key: testKey(2)})
	if tx.ID() != unsignedID {
		t.Fatalf("TestTransactionIDIgnoresSignatures: signatures changed the transaction id")
	}
	if tx.Digest() == unsignedDigest {
		t.Fatalf("TestTransactionIDIgnoresSignatures: signatures did not change the digest")
	}
	if tx.SigningDigest(NewChainID("a")) == tx.SigningDigest(NewChainID("b")) {
		t.Fatalf("TestTransactionIDIgnoresSignatures: signing digest does not depend on the chain id")
	}
}

func TestSlotBitmap(t *testing.T) {
	var bitmap SlotBitmap
	for i := 0; i < SlotBitmapSize; i++ {
		if bitmap.Shift(true) {
			t.Fatalf("TestSlotBitmap: evicted a filled slot after %d shifts", i)
		}
	}
	if bitmap.PopCount() != SlotBitmapSize {
		t.Fatalf("TestSlotBitmap: expected %d filled slots, got %d", SlotBitmapSize, bitmap.PopCount())
	}
	if !bitmap.Shift(false) {
		t.Fatalf("TestSlotBitmap: expected a filled slot to be evicted")
	}
	if bitmap.PopCount() != SlotBitmapSize-1 {
		t.Fatalf("TestSlotBitmap: expected %d filled slots, got %d", SlotBitmapSize-1, bitmap.PopCount())
	}
}

func TestVersionOrdering(t *testing.T) {
	if !(NewVersion(0, 1, 5) < NewVersion(0, 2, 0)) || !(NewVersion(0, 9, 9) < NewVersion(1, 0, 0)) {
		t.Fatalf("TestVersionOrdering: packed versions do not order like their components")
	}
	if NewVersion(1, 2, 3).String() != "1.2.3" {
		t.Fatalf("TestVersionOrdering: unexpected string %s", NewVersion(1, 2, 3))
	}
}
