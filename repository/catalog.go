package repository

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/minio/sha256-simd"
	mh "github.com/multiformats/go-multihash"

	"github.com/govm-net/nativevm/metadata"
)

// Catalog 合约包目录
type Catalog struct {
	mu      sync.RWMutex
	records map[string]*ContractRecord
	order   []string
}

// ContractRecord 已注册合约的信息
type ContractRecord struct {
	Code             string    // 合约代码标识
	ID               string    // 代码标识的 multihash (base58)
	Hash             [32]byte  // 代码标识哈希
	MainMetadata     []byte    // 原始元数据
	ExternalMetadata []byte    // 外部调用用的压缩元数据
	Methods          []MethodRecord
	RegisteredAt     time.Time // 注册时间
}

// MethodRecord 方法信息
type MethodRecord struct {
	Name        string                     `json:"name"`
	Kind        string                     `json:"kind"`
	Fingerprint metadata.MethodFingerprint `json:"-"`
}

// ContractMetadata 合约元数据的 JSON 形式
type ContractMetadata struct {
	ID           string           `json:"id"`
	Code         string           `json:"code"`
	Hash         string           `json:"hash"`
	RegisteredAt time.Time        `json:"registered_at"`
	Methods      []methodMetadata `json:"methods"`
}

type methodMetadata struct {
	MethodRecord
	Fingerprint string `json:"fingerprint"`
}

// NewCatalog 创建目录
func NewCatalog() *Catalog {
	return &Catalog{records: make(map[string]*ContractRecord)}
}

// CodeID returns the multihash of a code identifier.
func CodeID(code string) (string, [32]byte, error) {
	hash := sha256.Sum256([]byte(code))
	id, err := mh.Encode(hash[:], mh.SHA2_256)
	if err != nil {
		return "", hash, fmt.Errorf("failed to encode code id: %w", err)
	}
	return mh.Multihash(id).B58String(), hash, nil
}

// Register 注册合约包, 同一代码再次注册时追加尚未记录的方法 (例如 trait 实现)
func (c *Catalog) Register(code string, mainMetadata []byte, methods [][]byte) (*ContractRecord, error) {
	decoded := make([]MethodRecord, 0, len(methods))
	for _, m := range methods {
		method, _, err := metadata.DecodeMethod(m)
		if err != nil {
			return nil, fmt.Errorf("failed to decode method of %q: %w", code, err)
		}
		fp, err := metadata.Fingerprint(m)
		if err != nil {
			return nil, fmt.Errorf("failed to fingerprint method %q of %q: %w", method.Name, code, err)
		}
		decoded = append(decoded, MethodRecord{Name: method.Name, Kind: method.Kind.String(), Fingerprint: fp})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if rec, exists := c.records[code]; exists {
		for _, m := range decoded {
			if !rec.hasMethod(m.Fingerprint) {
				rec.Methods = append(rec.Methods, m)
			}
		}
		return rec, nil
	}

	external, ok := metadata.Compact(mainMetadata, true)
	if !ok {
		return nil, fmt.Errorf("failed to compact metadata of %q", code)
	}
	id, hash, err := CodeID(code)
	if err != nil {
		return nil, err
	}
	rec := &ContractRecord{
		Code:             code,
		ID:               id,
		Hash:             hash,
		MainMetadata:     mainMetadata,
		ExternalMetadata: external,
		Methods:          decoded,
		RegisteredAt:     time.Now(),
	}
	c.records[code] = rec
	c.order = append(c.order, code)
	slog.Debug("contract registered", "code", code, "id", id, "methods", len(decoded))
	return rec, nil
}

func (r *ContractRecord) hasMethod(fp metadata.MethodFingerprint) bool {
	for _, m := range r.Methods {
		if m.Fingerprint == fp {
			return true
		}
	}
	return false
}

// Get 获取合约信息
func (c *Catalog) Get(code string) (*ContractRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[code]
	return rec, ok
}

// List 按注册顺序返回所有合约
func (c *Catalog) List() []*ContractRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*ContractRecord, 0, len(c.order))
	for _, code := range c.order {
		out = append(out, c.records[code])
	}
	return out
}

func (r *ContractRecord) jsonMetadata() ContractMetadata {
	md := ContractMetadata{
		ID:           r.ID,
		Code:         r.Code,
		Hash:         hex.EncodeToString(r.Hash[:]),
		RegisteredAt: r.RegisteredAt,
		Methods:      make([]methodMetadata, len(r.Methods)),
	}
	for i, m := range r.Methods {
		md.Methods[i] = methodMetadata{MethodRecord: m, Fingerprint: m.Fingerprint.String()}
	}
	return md
}

// Describe 返回合约元数据的 JSON
func (c *Catalog) Describe(code string) ([]byte, error) {
	rec, ok := c.Get(code)
	if !ok {
		return nil, fmt.Errorf("contract not registered: %s", code)
	}
	c.mu.RLock()
	md := rec.jsonMetadata()
	c.mu.RUnlock()
	return json.MarshalIndent(md, "", "  ")
}

// SaveTo 把每个合约的元数据写到 rootDir/<id>/ 下
func (c *Catalog) SaveTo(rootDir string) error {
	for _, rec := range c.List() {
		dir := filepath.Join(rootDir, rec.ID)
		if err := os.MkdirAll(dir, 0755); err != nil {
			slog.Error("failed to create contract directory", "dir", dir, "error", err)
			return fmt.Errorf("failed to create contract directory: %w", err)
		}

		// 保存外部元数据
		if err := os.WriteFile(filepath.Join(dir, "abi.bin"), rec.ExternalMetadata, 0644); err != nil {
			return fmt.Errorf("failed to save abi: %w", err)
		}

		c.mu.RLock()
		md := rec.jsonMetadata()
		c.mu.RUnlock()
		metadataBytes, err := json.MarshalIndent(md, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "metadata.json"), metadataBytes, 0644); err != nil {
			return fmt.Errorf("failed to save metadata: %w", err)
		}
	}
	return nil
}

// LoadMetadata 读取 SaveTo 写出的元数据
func LoadMetadata(dir string) (*ContractMetadata, error) {
	metadataBytes, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	var md ContractMetadata
	if err := json.Unmarshal(metadataBytes, &md); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &md, nil
}
