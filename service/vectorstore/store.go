package vectorstore

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"tender-agent-backend/apperr"
	"time"
)

const (
	IndexFlat = "flat"
	IndexIVF  = "ivf"
	IndexHNSW = "hnsw"

	ivfTrainThreshold = 100
	ivfNList          = 16
	ivfNProbe         = 4
	ivfTrainIters     = 5

	hnswM              = 16
	hnswEF             = 32
	hnswEFConstruction = 200

	indexFile     = "vector.index"
	documentsFile = "documents.gob"
	metadataFile  = "metadata.json"
)

// Metadata 里的 interface 值需要注册具体类型才能过 gob
func init() {
	gob.Register(map[string]any{})
	gob.Register([]any{})
	gob.Register("")
	gob.Register(0)
	gob.Register(0.0)
	gob.Register(false)
}

// Document 向量库文档，向量已L2归一化
type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Vector   []float32      `json:"-"`
	Metadata map[string]any `json:"metadata"`
}

type SearchResult struct {
	Document *Document `json:"document"`
	Score    float64   `json:"score"`
}

// Metadata 落盘的运行统计
type Metadata struct {
	TotalVectors   int     `json:"total_vectors"`
	LastUpdated    string  `json:"last_updated"`
	IndexBuildTime float64 `json:"index_build_time"`
	SearchCount    int64   `json:"search_count"`
	AvgSearchTime  float64 `json:"avg_search_time"`
}

// Store 进程内持久化近邻库。单写多读；写操作落盘采用临时文件+rename。
// documents 与 idMapping 在任意 add/delete/rebuild 序列后保持双射。
type Store struct {
	mu      sync.RWMutex
	statsMu sync.Mutex
	dir     string
	dim     int

	indexType string
	index     vectorIndex

	documents map[string]*Document
	idMapping map[int]string
	nextIndex int

	meta Metadata
}

// documentsState documents.gob 的落盘结构
type documentsState struct {
	Documents map[string]*Document
	IDMapping map[int]string
	NextIndex int
}

// Open 加载或新建向量库。目录下存在三件套则恢复，否则建空库。
func Open(dir, indexType string, dim int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Resource("create vector store dir", err)
	}

	s := &Store{
		dir:       dir,
		dim:       dim,
		indexType: indexType,
		index:     newIndex(indexType, dim),
		documents: make(map[string]*Document),
		idMapping: make(map[int]string),
	}

	if _, err := os.Stat(filepath.Join(dir, documentsFile)); err == nil {
		if err := s.load(); err != nil {
			return nil, err
		}
		slog.Info("向量库已加载",
			"dir", dir, "index_type", indexType, "documents", len(s.documents))
	}
	return s, nil
}

func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

// AddDocuments 追加文档并持久化。id重复视为覆盖旧文档（软删除旧位置）。
func (s *Store) AddDocuments(docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	for _, doc := range docs {
		if len(doc.Vector) != s.dim {
			return apperr.Validation(
				fmt.Sprintf("vector dim mismatch: want %d, got %d", s.dim, len(doc.Vector)), nil)
		}
		if _, exists := s.documents[doc.ID]; exists {
			s.removeMapping(doc.ID)
		}
		pos := s.index.add(doc.Vector)
		s.documents[doc.ID] = doc
		s.idMapping[pos] = doc.ID
		s.nextIndex = pos + 1
	}
	s.meta.IndexBuildTime += time.Since(start).Seconds()
	s.meta.TotalVectors = len(s.documents)

	return s.persist()
}

// Search 向量检索。空库返回空切片；先取 min(2k, n) 粗排再按阈值和元数据过滤。
func (s *Store) Search(query []float32, topk int, threshold float64, filter map[string]any) ([]SearchResult, error) {
	if len(query) != s.dim {
		return nil, apperr.Validation(
			fmt.Sprintf("query dim mismatch: want %d, got %d", s.dim, len(query)), nil)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := time.Now()
	results := []SearchResult{}
	if len(s.documents) > 0 {
		coarse := 2 * topk
		if coarse > s.index.size() {
			coarse = s.index.size()
		}
		for _, cand := range s.index.search(query, coarse) {
			id, live := s.idMapping[cand.pos]
			if !live {
				// 软删除残留的索引位置
				continue
			}
			score := float64(cand.score)
			if score < threshold {
				continue
			}
			doc := s.documents[id]
			if !matchMetadata(doc.Metadata, filter) {
				continue
			}
			results = append(results, SearchResult{Document: doc, Score: score})
		}
		if len(results) > topk {
			results = results[:topk]
		}
	}

	elapsed := time.Since(start).Seconds()
	s.statsMu.Lock()
	s.meta.SearchCount++
	s.meta.AvgSearchTime += (elapsed - s.meta.AvgSearchTime) / float64(s.meta.SearchCount)
	s.statsMu.Unlock()
	return results, nil
}

// GetDocument 按id取文档
func (s *Store) GetDocument(id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, apperr.NotFound("vector document "+id)
	}
	return doc, nil
}

// Delete 软删除：只摘除映射，索引位置留待RebuildIndex回收
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[id]; !ok {
		return apperr.NotFound("vector document "+id)
	}
	s.removeMapping(id)
	delete(s.documents, id)
	s.meta.TotalVectors = len(s.documents)
	return s.persist()
}

func (s *Store) removeMapping(id string) {
	for pos, mapped := range s.idMapping {
		if mapped == id {
			delete(s.idMapping, pos)
			return
		}
	}
}

// RebuildIndex 重建索引：按原位置顺序重新插入存活向量，IVF重新训练
func (s *Store) RebuildIndex() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	positions := make([]int, 0, len(s.idMapping))
	for pos := range s.idMapping {
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	start := time.Now()
	s.index.reset()
	newMapping := make(map[int]string, len(positions))
	for _, pos := range positions {
		id := s.idMapping[pos]
		newPos := s.index.add(s.documents[id].Vector)
		newMapping[newPos] = id
	}
	s.idMapping = newMapping
	s.nextIndex = len(newMapping)
	s.meta.IndexBuildTime = time.Since(start).Seconds()
	s.meta.TotalVectors = len(s.documents)

	slog.Info("向量索引重建完成", "documents", len(s.documents), "index_type", s.indexType)
	return s.persist()
}

func matchMetadata(meta, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := meta[key]
		if !ok {
			return false
		}
		// 列表条件为 in 语义，标量为相等
		if list, isList := want.([]any); isList {
			found := false
			for _, item := range list {
				if item == got {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		} else if want != got {
			return false
		}
	}
	return true
}

// persist 三件套原子落盘。调用方持有写锁。
func (s *Store) persist() error {
	s.meta.LastUpdated = time.Now().Format(time.RFC3339)

	if err := writeAtomic(filepath.Join(s.dir, indexFile), func(f *os.File) error {
		return gob.NewEncoder(f).Encode(s.index.state())
	}); err != nil {
		return apperr.Resource("persist vector index", err)
	}

	state := documentsState{
		Documents: s.documents,
		IDMapping: s.idMapping,
		NextIndex: s.nextIndex,
	}
	if err := writeAtomic(filepath.Join(s.dir, documentsFile), func(f *os.File) error {
		return gob.NewEncoder(f).Encode(state)
	}); err != nil {
		return apperr.Resource("persist vector documents", err)
	}

	if err := writeAtomic(filepath.Join(s.dir, metadataFile), func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(s.meta)
	}); err != nil {
		return apperr.Resource("persist vector metadata", err)
	}
	return nil
}

func (s *Store) load() error {
	f, err := os.Open(filepath.Join(s.dir, documentsFile))
	if err != nil {
		return apperr.Resource("open vector documents", err)
	}
	defer f.Close()

	var state documentsState
	if err := gob.NewDecoder(f).Decode(&state); err != nil {
		return apperr.Resource("decode vector documents", err)
	}
	s.documents = state.Documents
	s.idMapping = state.IDMapping
	s.nextIndex = state.NextIndex

	idxf, err := os.Open(filepath.Join(s.dir, indexFile))
	if err != nil {
		return apperr.Resource("open vector index", err)
	}
	defer idxf.Close()

	var idxState indexState
	if err := gob.NewDecoder(idxf).Decode(&idxState); err != nil {
		return apperr.Resource("decode vector index", err)
	}
	s.index = restoreIndex(&idxState)

	if data, err := os.ReadFile(filepath.Join(s.dir, metadataFile)); err == nil {
		// 统计文件损坏不致命，从零开始累计
		_ = json.Unmarshal(data, &s.meta)
	}
	return nil
}

func writeAtomic(path string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
