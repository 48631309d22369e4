package jt808

import "fmt"

// Decoded 一次解码的结果。Buffered 为 true 表示分包尚未收齐，Message 为 nil
type Decoded struct {
	Header   Header
	Message  Message
	Buffered bool
}

// Codec 消息编解码门面：头部 -> 分包重组 -> 消息体
type Codec struct {
	version     Version
	registry    *Registry
	reassembler *Reassembler
}

// Option 编解码器选项
type Option func(*Codec)

func WithVersion(v Version) Option { return func(c *Codec) { c.version = v } }

func WithRegistry(r *Registry) Option { return func(c *Codec) { c.registry = r } }

func WithReassembler(r *Reassembler) Option { return func(c *Codec) { c.reassembler = r } }

func NewCodec(opts ...Option) *Codec {
	c := &Codec{version: VersionAuto}
	for _, o := range opts {
		o(c)
	}
	if c.registry == nil {
		c.registry = DefaultRegistry()
	}
	if c.reassembler == nil {
		c.reassembler = NewReassembler()
	}
	return c
}

func (c *Codec) Version() Version { return c.version }

func (c *Codec) Registry() *Registry { return c.registry }

func (c *Codec) Reassembler() *Reassembler { return c.reassembler }

// Decode 解码一条已去转义、去校验码的消息（消息头 + 消息体）。
// 未知消息类型返回已解析的头部与 *UnknownMessageError，调用方可记录后继续
func (c *Codec) Decode(b []byte) (Decoded, error) {
	h, n, err := DecodeHeader(b, c.version)
	if err != nil {
		return Decoded{}, err
	}
	rest := b[n:]
	if want := h.Property.BodyLength(); len(rest) != want {
		return Decoded{Header: h}, fmt.Errorf("%w: 0x%04X declared %d, got %d", ErrBodyLengthMismatch, h.MessageID, want, len(rest))
	}

	var body []byte
	if h.Package != nil {
		out, err := c.reassembler.Ingest(h.PhoneNumber, h.MessageID, *h.Package, rest)
		if err != nil {
			return Decoded{Header: h}, err
		}
		if out.Status == StatusPending {
			return Decoded{Header: h, Buffered: true}, nil
		}
		body = out.Body
	} else {
		body = make([]byte, len(rest))
		copy(body, rest)
	}

	m, err := c.registry.DecodeBody(h.MessageID, body)
	if err != nil {
		return Decoded{Header: h}, err
	}
	return Decoded{Header: h, Message: m}, nil
}

// Encode 编码消息：消息ID取自 m，长度位按消息体重新计算
func (c *Codec) Encode(h Header, m Message) ([]byte, error) {
	body, err := c.registry.EncodeBody(m)
	if err != nil {
		return nil, err
	}
	h.MessageID = m.MessageID()
	head, err := EncodeHeader(h, len(body), c.version)
	if err != nil {
		return nil, err
	}
	return append(head, body...), nil
}

// EncodeFragments 按 chunk 字节切分消息体并逐包编码，流水号自 h.SerialNumber 起连续递增
func (c *Codec) EncodeFragments(h Header, m Message, chunk int) ([][]byte, error) {
	if chunk <= 0 || chunk > MaxBodyLength {
		return nil, invalidField("chunk", chunk)
	}
	body, err := c.registry.encode(m)
	if err != nil {
		return nil, err
	}
	total := (len(body) + chunk - 1) / chunk
	if total == 0 {
		total = 1
	}
	if total > 0xFFFF {
		return nil, fmt.Errorf("%w: %d bytes needs %d packets", ErrBodyTooLong, len(body), total)
	}

	h.MessageID = m.MessageID()
	out := make([][]byte, 0, total)
	for i := 0; i < total; i++ {
		end := (i + 1) * chunk
		if end > len(body) {
			end = len(body)
		}
		part := body[i*chunk : end]
		ph := h
		ph.SerialNumber = h.SerialNumber + uint16(i)
		ph.Package = &PackageInfo{Total: uint16(total), Sequence: uint16(i + 1)}
		head, err := EncodeHeader(ph, len(part), c.version)
		if err != nil {
			return nil, err
		}
		out = append(out, append(head, part...))
	}
	return out, nil
}
