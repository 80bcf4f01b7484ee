package blocklog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
)

func buildBlocks(count int) []*model.SignedBlock {
	blocks := make([]*model.SignedBlock, count)
	var previous model.BlockID
	for i := range blocks {
		block := &model.SignedBlock{}
		block.Previous = previous
		block.Timestamp = int64(i+1) * 3
		block.Producer = "alice"
		blocks[i] = block
		previous = block.ID()
	}
	return blocks
}

func setupBlockLog(t *testing.T, blocks []*model.SignedBlock) (dir string, blockLog *BlockLog) {
	dir = t.TempDir()
	blockLog, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	for _, block := range blocks {
		_, err := blockLog.Append(block)
		if err != nil {
			t.Fatalf("Append %d: %s", block.Num(), err)
		}
	}
	return dir, blockLog
}

func checkBlocks(t *testing.T, testName string, blockLog *BlockLog, blocks []*model.SignedBlock) {
	if blockLog.HeadNum() != uint32(len(blocks)) {
		t.Fatalf("%s: expected head %d, got %d", testName, len(blocks), blockLog.HeadNum())
	}
	for _, expected := range blocks {
		block, ok, err := blockLog.ReadBlockByNum(expected.Num())
		if err != nil {
			t.Fatalf("%s: ReadBlockByNum %d: %s", testName, expected.Num(), err)
		}
		if !ok || block.ID() != expected.ID() {
			t.Fatalf("%s: block %d does not match", testName, expected.Num())
		}
	}
}

func TestAppendAndRead(t *testing.T) {
	blocks := buildBlocks(5)
	dir, blockLog := setupBlockLog(t, blocks)
	checkBlocks(t, "TestAppendAndRead", blockLog, blocks)

	_, ok, err := blockLog.ReadBlockByNum(6)
	if err != nil || ok {
		t.Fatalf("TestAppendAndRead: expected no block 6, got ok=%t err=%v", ok, err)
	}
	_, err = blockLog.Append(blocks[2])
	if err == nil {
		t.Fatalf("TestAppendAndRead: expected an error appending a block out of order")
	}

	var pos uint64
	for i := range blocks {
		block, next, err := blockLog.ReadBlock(pos)
		if err != nil {
			t.Fatalf("TestAppendAndRead: ReadBlock: %s", err)
		}
		if block.ID() != blocks[i].ID() {
			t.Fatalf("TestAppendAndRead: walking the log returned block %d at step %d", block.Num(), i)
		}
		pos = next
	}

	err = blockLog.Close()
	if err != nil {
		t.Fatalf("TestAppendAndRead: Close: %s", err)
	}
	blockLog, err = Open(dir)
	if err != nil {
		t.Fatalf("TestAppendAndRead: reopening: %s", err)
	}
	defer blockLog.Close()
	checkBlocks(t, "TestAppendAndRead", blockLog, blocks)
}

func TestTornTail(t *testing.T) {
	blocks := buildBlocks(4)
	dir, blockLog := setupBlockLog(t, blocks)
	err := blockLog.Close()
	if err != nil {
		t.Fatalf("TestTornTail: Close: %s", err)
	}

	logPath := filepath.Join(dir, logFileName)
	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("TestTornTail: %s", err)
	}
	err = os.Truncate(logPath, info.Size()-3)
	if err != nil {
		t.Fatalf("TestTornTail: %s", err)
	}

	blockLog, err = Open(dir)
	if err != nil {
		t.Fatalf("TestTornTail: reopening: %s", err)
	}
	defer blockLog.Close()
	checkBlocks(t, "TestTornTail", blockLog, blocks[:3])

	_, err = blockLog.Append(blocks[3])
	if err != nil {
		t.Fatalf("TestTornTail: appending after recovery: %s", err)
	}
	checkBlocks(t, "TestTornTail", blockLog, blocks)
}

func TestIndexRebuild(t *testing.T) {
	blocks := buildBlocks(6)
	dir, blockLog := setupBlockLog(t, blocks)
	err := blockLog.Close()
	if err != nil {
		t.Fatalf("TestIndexRebuild: Close: %s", err)
	}

	err = os.Truncate(filepath.Join(dir, indexFileName), positionLength*2)
	if err != nil {
		t.Fatalf("TestIndexRebuild: %s", err)
	}
	blockLog, err = Open(dir)
	if err != nil {
		t.Fatalf("TestIndexRebuild: reopening: %s", err)
	}
	defer blockLog.Close()
	checkBlocks(t, "TestIndexRebuild", blockLog, blocks)
}
