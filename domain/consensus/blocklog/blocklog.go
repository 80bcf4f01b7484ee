package blocklog

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/ruleerrors"
	"github.com/pkg/errors"
)

const (
	logFileName   = "block_log"
	indexFileName = "block_log.index"

	// dataLengthLength is the length in bytes of the length prefix of a
	// record.
	dataLengthLength = 4

	// positionLength is the length in bytes of the record position that
	// ends every record, and of an index entry.
	positionLength = 8

	// maxRecordSize bounds the length prefix so a corrupt prefix is not
	// mistaken for a huge record.
	maxRecordSize = 64 * 1024 * 1024
)

// byteOrder is the byte order of every integer in the block log and its
// index.
var byteOrder = binary.LittleEndian

// BlockLog is the append-only log of irreversible blocks. Every record is
// <uint32 length><serialized block><uint64 position of the record>, so the
// log can be walked forwards by length and backwards by the trailing
// position. The index file holds the position of block n at offset
// (n-1)*8.
//
// BlockLog is NOT safe for concurrent access.
type BlockLog struct {
	logFile   *os.File
	indexFile *os.File
	logSize   uint64
	head      *model.SignedBlock
	headPos   uint64
}

// Open opens the block log in dir, creating it if needed. A record torn by
// a crash is cut off, and the index is rebuilt if it does not match the
// log.
func Open(dir string) (*BlockLog, error) {
	err := os.MkdirAll(dir, 0700)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	logFile, err := os.OpenFile(filepath.Join(dir, logFileName), os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	indexFile, err := os.OpenFile(filepath.Join(dir, indexFileName), os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		logFile.Close()
		return nil, errors.WithStack(err)
	}
	blockLog := &BlockLog{logFile: logFile, indexFile: indexFile}
	err = blockLog.recover()
	if err != nil {
		blockLog.Close()
		return nil, err
	}
	return blockLog, nil
}

func (l *BlockLog) recover() error {
	info, err := l.logFile.Stat()
	if err != nil {
		return errors.WithStack(err)
	}
	l.logSize = uint64(info.Size())
	if l.logSize == 0 {
		return l.truncateIndex(0)
	}

	head, headPos, ok := l.readTail()
	if !ok {
		head, headPos, err = l.scanForTail()
		if err != nil {
			return err
		}
	}
	l.head = head
	l.headPos = headPos
	if head == nil {
		return l.truncateIndex(0)
	}

	consistent, err := l.indexMatchesHead()
	if err != nil {
		return err
	}
	if !consistent {
		return l.rebuildIndex()
	}
	return nil
}

// readTail reads the last record through the trailing position and reports
// whether it is complete.
func (l *BlockLog) readTail() (*model.SignedBlock, uint64, bool) {
	if l.logSize < dataLengthLength+positionLength {
		return nil, 0, false
	}
	var trailer [positionLength]byte
	_, err := l.logFile.ReadAt(trailer[:], int64(l.logSize-positionLength))
	if err != nil {
		return nil, 0, false
	}
	pos := byteOrder.Uint64(trailer[:])
	block, next, err := l.ReadBlock(pos)
	if err != nil || next != l.logSize {
		return nil, 0, false
	}
	return block, pos, true
}

// scanForTail walks the log from the start, keeps every complete record
// and truncates whatever follows the last one.
func (l *BlockLog) scanForTail() (*model.SignedBlock, uint64, error) {
	var head *model.SignedBlock
	var headPos, pos uint64
	for pos < l.logSize {
		block, next, err := l.ReadBlock(pos)
		if err != nil {
			break
		}
		head, headPos, pos = block, pos, next
	}
	log.Warnf("Block log has an incomplete record at %d, truncating %d bytes", pos, l.logSize-pos)
	err := l.logFile.Truncate(int64(pos))
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	l.logSize = pos
	return head, headPos, nil
}

func (l *BlockLog) indexMatchesHead() (bool, error) {
	info, err := l.indexFile.Stat()
	if err != nil {
		return false, errors.WithStack(err)
	}
	headNum := uint64(l.head.Num())
	if uint64(info.Size()) != headNum*positionLength {
		return false, nil
	}
	pos, err := l.indexEntry(l.head.Num())
	if err != nil {
		return false, nil
	}
	return pos == l.headPos, nil
}

func (l *BlockLog) rebuildIndex() error {
	log.Infof("Rebuilding the block log index")
	err := l.truncateIndex(0)
	if err != nil {
		return err
	}
	var pos uint64
	for pos < l.logSize {
		block, next, err := l.ReadBlock(pos)
		if err != nil {
			return err
		}
		err = l.writeIndexEntry(block.Num(), pos)
		if err != nil {
			return err
		}
		pos = next
	}
	return nil
}

func (l *BlockLog) truncateIndex(numBlocks uint32) error {
	return errors.WithStack(l.indexFile.Truncate(int64(numBlocks) * positionLength))
}

func (l *BlockLog) indexEntry(blockNum uint32) (uint64, error) {
	var entry [positionLength]byte
	_, err := l.indexFile.ReadAt(entry[:], int64(blockNum-1)*positionLength)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return byteOrder.Uint64(entry[:]), nil
}

func (l *BlockLog) writeIndexEntry(blockNum uint32, pos uint64) error {
	var entry [positionLength]byte
	byteOrder.PutUint64(entry[:], pos)
	_, err := l.indexFile.WriteAt(entry[:], int64(blockNum-1)*positionLength)
	return errors.WithStack(err)
}

// Head returns the last block in the log, or nil if the log is empty.
func (l *BlockLog) Head() *model.SignedBlock {
	return l.head
}

// HeadNum returns the number of the last block in the log, or zero.
func (l *BlockLog) HeadNum() uint32 {
	if l.head == nil {
		return 0
	}
	return l.head.Num()
}

// Append appends block, which must follow the head, and returns the
// position of its record. I/O failures are fatal.
func (l *BlockLog) Append(block *model.SignedBlock) (uint64, error) {
	if block.Num() != l.HeadNum()+1 {
		return 0, errors.Errorf("cannot append block %d after block %d", block.Num(), l.HeadNum())
	}
	data, err := model.SerializeBlock(block)
	if err != nil {
		return 0, err
	}
	pos := l.logSize
	record := make([]byte, dataLengthLength+len(data)+positionLength)
	byteOrder.PutUint32(record, uint32(len(data)))
	copy(record[dataLengthLength:], data)
	byteOrder.PutUint64(record[dataLengthLength+len(data):], pos)

	_, err = l.logFile.WriteAt(record, int64(pos))
	if err != nil {
		return 0, ruleerrors.NewErrBlockLogIO(err)
	}
	err = l.writeIndexEntry(block.Num(), pos)
	if err != nil {
		return 0, ruleerrors.NewErrBlockLogIO(err)
	}
	l.logSize += uint64(len(record))
	l.head = block
	l.headPos = pos
	return pos, nil
}

// ReadBlock reads the record at pos and returns its block and the position
// of the next record.
func (l *BlockLog) ReadBlock(pos uint64) (*model.SignedBlock, uint64, error) {
	if pos+dataLengthLength+positionLength > l.logSize {
		return nil, 0, errors.Errorf("no block log record at %d", pos)
	}
	var lengthBytes [dataLengthLength]byte
	_, err := l.logFile.ReadAt(lengthBytes[:], int64(pos))
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	length := uint64(byteOrder.Uint32(lengthBytes[:]))
	next := pos + dataLengthLength + length + positionLength
	if length == 0 || length > maxRecordSize || next > l.logSize {
		return nil, 0, errors.Errorf("block log record at %d is incomplete", pos)
	}
	record := make([]byte, length+positionLength)
	_, err = l.logFile.ReadAt(record, int64(pos+dataLengthLength))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, 0, errors.WithStack(err)
	}
	if byteOrder.Uint64(record[length:]) != pos {
		return nil, 0, errors.Errorf("block log record at %d ends with a wrong position", pos)
	}
	block, err := model.DeserializeBlock(record[:length])
	if err != nil {
		return nil, 0, err
	}
	return block, next, nil
}

// ReadBlockByNum returns block blockNum, or false if the log does not
// hold it.
func (l *BlockLog) ReadBlockByNum(blockNum uint32) (*model.SignedBlock, bool, error) {
	if blockNum == 0 || blockNum > l.HeadNum() {
		return nil, false, nil
	}
	pos, err := l.indexEntry(blockNum)
	if err != nil {
		return nil, false, err
	}
	block, _, err := l.ReadBlock(pos)
	if err != nil {
		return nil, false, err
	}
	if block.Num() != blockNum {
		return nil, false, errors.Errorf("block log index points block %d at block %d", blockNum, block.Num())
	}
	return block, true, nil
}

// Flush makes every appended block durable.
func (l *BlockLog) Flush() error {
	err := l.logFile.Sync()
	if err != nil {
		return ruleerrors.NewErrBlockLogIO(err)
	}
	err = l.indexFile.Sync()
	if err != nil {
		return ruleerrors.NewErrBlockLogIO(err)
	}
	return nil
}

// Close flushes and closes the log.
func (l *BlockLog) Close() error {
	flushErr := l.Flush()
	logErr := l.logFile.Close()
	indexErr := l.indexFile.Close()
	switch {
	case flushErr != nil:
		return flushErr
	case logErr != nil:
		return errors.WithStack(logErr)
	default:
		return errors.WithStack(indexErr)
	}
}
