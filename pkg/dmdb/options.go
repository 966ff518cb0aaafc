package dmdb

type Options struct {
	NodeId       int64
	DataDir      string
	CacheSize    int // 记录缓存的最大条数
	MemTableSize int
}

func NewOptions(opt ...Option) *Options {
	o := &Options{
		NodeId:       1,
		DataDir:      "./data",
		CacheSize:    2048,
		MemTableSize: 16 * 1024 * 1024,
	}
	for _, f := range opt {
		f(o)
	}
	return o
}

type Option func(*Options)

func WithDir(dir string) Option {
	return func(o *Options) {
		o.DataDir = dir
	}
}

func WithNodeId(nodeId int64) Option {
	return func(o *Options) {
		o.NodeId = nodeId
	}
}

func WithCacheSize(size int) Option {
	return func(o *Options) {
		o.CacheSize = size
	}
}
