// codec.go

package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Codec 消息编解码器，每个连接在握手时选定一个
type Codec interface {
	Name() string
	// Binary 为 true 时使用二进制帧
	Binary() bool
	Encode(env Envelope) ([]byte, error)
	Decode(data []byte) (Inbound, error)
}

// 编解码器名称
const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
	CodecProto   = "proto"
)

// CodecByName 根据名称获取编解码器，空名称返回 JSON
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", CodecJSON:
		return JSONCodec{}, nil
	case CodecMsgpack:
		return MsgpackCodec{}, nil
	case CodecProto, "protobuf":
		return ProtoCodec{}, nil
	default:
		return nil, fmt.Errorf("不支持的编码: %s", name)
	}
}

// Codecs 全部编解码器
func Codecs() []Codec {
	return []Codec{JSONCodec{}, MsgpackCodec{}, ProtoCodec{}}
}

// JSONCodec JSON 文本帧
type JSONCodec struct{}

func (JSONCodec) Name() string { return CodecJSON }

func (JSONCodec) Binary() bool { return false }

func (JSONCodec) Encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

func (JSONCodec) Decode(data []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return Inbound{}, fmt.Errorf("解析JSON消息失败: %w", err)
	}
	return in, nil
}

// MsgpackCodec msgpack 二进制帧，字段名与 JSON 相同
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return CodecMsgpack }

func (MsgpackCodec) Binary() bool { return true }

func (MsgpackCodec) Encode(env Envelope) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(env); err != nil {
		return nil, fmt.Errorf("编码msgpack消息失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (MsgpackCodec) Decode(data []byte) (Inbound, error) {
	var in Inbound
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&in); err != nil {
		return Inbound{}, fmt.Errorf("解析msgpack消息失败: %w", err)
	}
	return in, nil
}

// ProtoCodec protobuf 二进制帧，消息体为 google.protobuf.Struct
type ProtoCodec struct{}

func (ProtoCodec) Name() string { return CodecProto }

func (ProtoCodec) Binary() bool { return true }

func (ProtoCodec) Encode(env Envelope) ([]byte, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("构造protobuf消息失败: %w", err)
	}
	return proto.Marshal(st)
}

func (ProtoCodec) Decode(data []byte) (Inbound, error) {
	st := &structpb.Struct{}
	if err := proto.Unmarshal(data, st); err != nil {
		return Inbound{}, fmt.Errorf("解析protobuf消息失败: %w", err)
	}
	raw, err := protojson.Marshal(st)
	if err != nil {
		return Inbound{}, err
	}
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return Inbound{}, fmt.Errorf("解析protobuf消息失败: %w", err)
	}
	return in, nil
}
