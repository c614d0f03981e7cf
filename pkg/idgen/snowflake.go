package idgen

import (
	"fmt"
	"sync"
	"time"
)

// 雪花算法：41 位毫秒时间戳 | 10 位节点号 | 12 位序列号
// 用于收据号和事件 key，主键仍由数据库自增

const (
	epoch          = int64(1704067200000) // 2024-01-01 00:00:00 UTC
	nodeBits       = 10
	sequenceBits   = 12
	maxNodeID      = -1 ^ (-1 << nodeBits)
	maxSequence    = -1 ^ (-1 << sequenceBits)
	nodeShift      = sequenceBits
	timestampShift = sequenceBits + nodeBits
)

// 收据号前缀
const (
	PrefixIncome   = "RCP"
	PrefixExpense  = "EXP"
	PrefixBackfill = "MIG"
	PrefixEvent    = "EVT"
)

type Snowflake struct {
	mu        sync.Mutex
	timestamp int64
	nodeID    int64
	sequence  int64
	now       func() int64
}

// NewSnowflake 创建生成器，nodeID 取值 0-1023
func NewSnowflake(nodeID int64) (*Snowflake, error) {
	if nodeID < 0 || nodeID > maxNodeID {
		return nil, fmt.Errorf("nodeID 必须在 0-%d 之间", maxNodeID)
	}
	return &Snowflake{
		nodeID: nodeID,
		now:    func() int64 { return time.Now().UnixMilli() },
	}, nil
}

var (
	defaultGenerator *Snowflake
	initOnce         sync.Once
)

// Init 初始化默认生成器，只有第一次调用生效
func Init(nodeID int64) error {
	var err error
	initOnce.Do(func() {
		defaultGenerator, err = NewSnowflake(nodeID)
	})
	return err
}

// NextID 使用默认生成器，未初始化时按节点 1 初始化
func NextID() int64 {
	if err := Init(1); err != nil || defaultGenerator == nil {
		panic("idgen: 默认生成器初始化失败")
	}
	return defaultGenerator.Generate()
}

func (s *Snowflake) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if now == s.timestamp {
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			// 本毫秒序列号用完，等下一毫秒
			for now <= s.timestamp {
				now = s.now()
			}
		}
	} else {
		s.sequence = 0
	}

	s.timestamp = now

	return ((now - epoch) << timestampShift) |
		(s.nodeID << nodeShift) |
		s.sequence
}

// GenerateReceiptNo 生成收据号，格式：前缀 + 年月日 + 雪花ID
// 例如：RCP20240115-291834726451200001
func GenerateReceiptNo(prefix string) string {
	return fmt.Sprintf("%s%s-%d", prefix, time.Now().Format("20060102"), NextID())
}

// GenerateEventKey 生成事件消息 key
func GenerateEventKey() string {
	return fmt.Sprintf("%s%d", PrefixEvent, NextID())
}
