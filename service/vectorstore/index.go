package vectorstore

import (
	"container/heap"
	"math"
	"math/rand"
	"sort"
)

// 向量均已L2归一化，相似度直接用内积
func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

type candidate struct {
	pos   int
	score float32
}

// vectorIndex 近邻索引。position由add顺序分配，reset后重新从0开始。
type vectorIndex interface {
	add(vec []float32) int
	search(q []float32, k int) []candidate
	reset()
	size() int
	state() *indexState
	restore(s *indexState)
}

// indexState 索引的可序列化快照，gob编码写入vector.index
type indexState struct {
	Type      string
	Dim       int
	Vectors   [][]float32
	Centroids [][]float32
	Lists     [][]int
	Links     [][]int
}

func newIndex(indexType string, dim int) vectorIndex {
	switch indexType {
	case IndexIVF:
		return &ivfIndex{dim: dim, nlist: ivfNList, nprobe: ivfNProbe}
	case IndexHNSW:
		return &hnswIndex{dim: dim, m: hnswM, ef: hnswEF, efConstruction: hnswEFConstruction}
	default:
		return &flatIndex{dim: dim}
	}
}

func restoreIndex(s *indexState) vectorIndex {
	idx := newIndex(s.Type, s.Dim)
	idx.restore(s)
	return idx
}

func topK(cands []candidate, k int) []candidate {
	sort.Slice(cands, func(i, j int) bool { return cands[i].score > cands[j].score })
	if len(cands) > k {
		cands = cands[:k]
	}
	return cands
}

// ---- flat：精确暴力扫描 ----

type flatIndex struct {
	dim     int
	vectors [][]float32
}

func (f *flatIndex) add(vec []float32) int {
	f.vectors = append(f.vectors, vec)
	return len(f.vectors) - 1
}

func (f *flatIndex) search(q []float32, k int) []candidate {
	cands := make([]candidate, 0, len(f.vectors))
	for pos, vec := range f.vectors {
		cands = append(cands, candidate{pos: pos, score: dot(q, vec)})
	}
	return topK(cands, k)
}

func (f *flatIndex) reset()    { f.vectors = nil }
func (f *flatIndex) size() int { return len(f.vectors) }

func (f *flatIndex) state() *indexState {
	return &indexState{Type: IndexFlat, Dim: f.dim, Vectors: f.vectors}
}

func (f *flatIndex) restore(s *indexState) { f.vectors = s.Vectors }

// ---- ivf：k-means倒排，不足100条时退化为精确扫描 ----

type ivfIndex struct {
	dim    int
	nlist  int
	nprobe int

	vectors   [][]float32
	centroids [][]float32
	lists     [][]int
}

func (v *ivfIndex) trained() bool { return len(v.centroids) > 0 }

func (v *ivfIndex) add(vec []float32) int {
	pos := len(v.vectors)
	v.vectors = append(v.vectors, vec)

	if !v.trained() && len(v.vectors) >= ivfTrainThreshold {
		v.train()
	} else if v.trained() {
		list := v.nearestCentroid(vec)
		v.lists[list] = append(v.lists[list], pos)
	}
	return pos
}

// train 对现有向量跑少量轮次k-means并建倒排表
func (v *ivfIndex) train() {
	nlist := v.nlist
	if nlist > len(v.vectors) {
		nlist = len(v.vectors)
	}

	rng := rand.New(rand.NewSource(42))
	perm := rng.Perm(len(v.vectors))
	v.centroids = make([][]float32, nlist)
	for i := 0; i < nlist; i++ {
		v.centroids[i] = append([]float32(nil), v.vectors[perm[i]]...)
	}

	assign := make([]int, len(v.vectors))
	for iter := 0; iter < ivfTrainIters; iter++ {
		for i, vec := range v.vectors {
			assign[i] = v.nearestCentroid(vec)
		}
		sums := make([][]float64, nlist)
		counts := make([]int, nlist)
		for i := range sums {
			sums[i] = make([]float64, v.dim)
		}
		for i, vec := range v.vectors {
			counts[assign[i]]++
			for d, x := range vec {
				sums[assign[i]][d] += float64(x)
			}
		}
		for c := 0; c < nlist; c++ {
			if counts[c] == 0 {
				continue
			}
			var norm float64
			for d := range v.centroids[c] {
				mean := sums[c][d] / float64(counts[c])
				v.centroids[c][d] = float32(mean)
				norm += mean * mean
			}
			if norm > 0 {
				inv := float32(1 / math.Sqrt(norm))
				for d := range v.centroids[c] {
					v.centroids[c][d] *= inv
				}
			}
		}
	}

	v.lists = make([][]int, nlist)
	for i, vec := range v.vectors {
		list := v.nearestCentroid(vec)
		v.lists[list] = append(v.lists[list], i)
	}
}

func (v *ivfIndex) nearestCentroid(vec []float32) int {
	best, bestScore := 0, float32(math.Inf(-1))
	for i, c := range v.centroids {
		if s := dot(vec, c); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}

func (v *ivfIndex) search(q []float32, k int) []candidate {
	if !v.trained() {
		cands := make([]candidate, 0, len(v.vectors))
		for pos, vec := range v.vectors {
			cands = append(cands, candidate{pos: pos, score: dot(q, vec)})
		}
		return topK(cands, k)
	}

	type scored struct {
		list  int
		score float32
	}
	lists := make([]scored, len(v.centroids))
	for i, c := range v.centroids {
		lists[i] = scored{list: i, score: dot(q, c)}
	}
	sort.Slice(lists, func(i, j int) bool { return lists[i].score > lists[j].score })

	nprobe := v.nprobe
	if nprobe > len(lists) {
		nprobe = len(lists)
	}

	var cands []candidate
	for _, l := range lists[:nprobe] {
		for _, pos := range v.lists[l.list] {
			cands = append(cands, candidate{pos: pos, score: dot(q, v.vectors[pos])})
		}
	}
	return topK(cands, k)
}

func (v *ivfIndex) reset() {
	v.vectors, v.centroids, v.lists = nil, nil, nil
}

func (v *ivfIndex) size() int { return len(v.vectors) }

func (v *ivfIndex) state() *indexState {
	return &indexState{
		Type: IndexIVF, Dim: v.dim,
		Vectors: v.vectors, Centroids: v.centroids, Lists: v.lists,
	}
}

func (v *ivfIndex) restore(s *indexState) {
	v.vectors, v.centroids, v.lists = s.Vectors, s.Centroids, s.Lists
}

// ---- hnsw：单层近邻图，贪心+束搜索 ----

type hnswIndex struct {
	dim            int
	m              int
	ef             int
	efConstruction int

	vectors [][]float32
	links   [][]int
}

func (h *hnswIndex) add(vec []float32) int {
	pos := len(h.vectors)
	h.vectors = append(h.vectors, vec)
	h.links = append(h.links, nil)
	if pos == 0 {
		return pos
	}

	neighbors := h.searchLayer(vec, h.efConstruction)
	if len(neighbors) > h.m {
		neighbors = neighbors[:h.m]
	}
	for _, n := range neighbors {
		h.links[pos] = append(h.links[pos], n.pos)
		h.links[n.pos] = append(h.links[n.pos], pos)
		if len(h.links[n.pos]) > h.m*2 {
			h.links[n.pos] = h.pruneLinks(n.pos)
		}
	}
	return pos
}

// pruneLinks 保留与节点最相似的 m 个邻居
func (h *hnswIndex) pruneLinks(pos int) []int {
	links := h.links[pos]
	sort.Slice(links, func(i, j int) bool {
		return dot(h.vectors[pos], h.vectors[links[i]]) > dot(h.vectors[pos], h.vectors[links[j]])
	})
	return append([]int(nil), links[:h.m]...)
}

type candidateHeap struct {
	items []candidate
	max   bool
}

func (h *candidateHeap) Len() int { return len(h.items) }
func (h *candidateHeap) Less(i, j int) bool {
	if h.max {
		return h.items[i].score > h.items[j].score
	}
	return h.items[i].score < h.items[j].score
}
func (h *candidateHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *candidateHeap) Push(x any)    { h.items = append(h.items, x.(candidate)) }
func (h *candidateHeap) Pop() any {
	n := len(h.items)
	item := h.items[n-1]
	h.items = h.items[:n-1]
	return item
}

func (h *hnswIndex) searchLayer(q []float32, ef int) []candidate {
	if len(h.vectors) == 0 {
		return nil
	}

	entry := candidate{pos: 0, score: dot(q, h.vectors[0])}
	visited := map[int]bool{0: true}

	// frontier按分数从高到低扩展，results保留当前最优ef个
	frontier := &candidateHeap{items: []candidate{entry}, max: true}
	results := &candidateHeap{items: []candidate{entry}}

	for frontier.Len() > 0 {
		best := heap.Pop(frontier).(candidate)
		if results.Len() >= ef && best.score < results.items[0].score {
			break
		}

		for _, n := range h.links[best.pos] {
			if visited[n] {
				continue
			}
			visited[n] = true
			c := candidate{pos: n, score: dot(q, h.vectors[n])}
			if results.Len() < ef || c.score > results.items[0].score {
				heap.Push(frontier, c)
				heap.Push(results, c)
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := append([]candidate(nil), results.items...)
	sort.Slice(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

func (h *hnswIndex) search(q []float32, k int) []candidate {
	ef := h.ef
	if ef < k {
		ef = k
	}
	cands := h.searchLayer(q, ef)
	if len(cands) > k {
		cands = cands[:k]
	}
	return cands
}

func (h *hnswIndex) reset() {
	h.vectors, h.links = nil, nil
}

func (h *hnswIndex) size() int { return len(h.vectors) }

func (h *hnswIndex) state() *indexState {
	return &indexState{Type: IndexHNSW, Dim: h.dim, Vectors: h.vectors, Links: h.links}
}

func (h *hnswIndex) restore(s *indexState) {
	h.vectors, h.links = s.Vectors, s.Links
	if h.links == nil && len(h.vectors) > 0 {
		h.links = make([][]int, len(h.vectors))
	}
}
