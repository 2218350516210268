package ids

import (
	"strconv"
	"sync"
	"time"
)

// Node 雪花 ID 生成器：41 位毫秒时间戳 | 10 位节点 | 12 位序号
type Node struct {
	mu       sync.Mutex
	epochMS  int64
	nodeID   int64 // 0~1023
	seq      int64 // 0~4095
	lastTSMS int64
	now      func() int64
}

var (
	defaultNode *Node
	once        sync.Once
)

var defaultEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

func NewNode(nodeID int64) *Node {
	if nodeID < 0 || nodeID > 1023 {
		nodeID = 1
	}
	return &Node{
		epochMS: defaultEpoch,
		nodeID:  nodeID,
		now:     func() int64 { return time.Now().UnixMilli() },
	}
}

func initDefault() {
	once.Do(func() {
		defaultNode = NewNode(1)
	})
}

// Generate 使用默认节点生成一个新的雪花ID
func Generate() int64 {
	initDefault()
	return defaultNode.Next()
}

func GenerateString() string {
	return strconv.FormatInt(Generate(), 10)
}

// SetNodeID 设置默认节点的 nodeID（0~1023），在 main() 初始化时调用
func SetNodeID(nodeID int64) {
	initDefault()
	if nodeID < 0 || nodeID > 1023 {
		nodeID = 1
	}
	defaultNode.mu.Lock()
	defaultNode.nodeID = nodeID
	defaultNode.mu.Unlock()
}

func (g *Node) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		now := g.now()
		if now < g.lastTSMS {
			// 时钟回拨，等待
			time.Sleep(time.Duration(g.lastTSMS-now) * time.Millisecond)
			continue
		}
		if now == g.lastTSMS {
			g.seq = (g.seq + 1) & 0xFFF
			if g.seq == 0 {
				// 序列溢出，等到下一毫秒
				for now <= g.lastTSMS {
					now = g.now()
				}
			}
		} else {
			g.seq = 0
		}
		g.lastTSMS = now

		ts := (now - g.epochMS) & ((1 << 41) - 1)
		return (ts << 22) | (g.nodeID << 12) | g.seq
	}
}
