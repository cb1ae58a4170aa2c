// Package fieldvalue 实现字段值的类型化编解码。
//
// 用户填写的是字符串（如 "$1,234.56"、"3:45"），入库前按字段类型编码成
// 紧凑的数值/文本表示，读取时再无损解码回展示字符串。编码解码都是纯函数，
// 字段类型表由调用方注入，包内不持有任何可变状态。
package fieldvalue

import (
	"fmt"
	"strconv"
	"strings"

	"dlireport/models"
)

// ValidationError 用户输入格式错误，指明出错片段和期望的分隔符。
// 属于可恢复错误，调用方应把它作为字段级提示返回给用户，而不是中断请求。
type ValidationError struct {
	Fragment  string // 出错的输入片段
	Separator string // 期望的分隔符（"." 或 ":"，数字解析错误时为空）
	Message   string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Encoded 编码后的存储表示。按字段类型只填充一个值槽：
//
//	CURRENCY -> IValue（分）
//	TIME     -> IValue（秒）
//	INTEGER  -> IValue
//	DOUBLE   -> DValue
//	STRING   -> SValue
//
// Absent 表示输入为空，不应写入任何数据行。
type Encoded struct {
	Absent bool
	IValue *int64
	DValue *float64
	SValue *string
}

// Decoded 解码结果：原始值加展示字符串
type Decoded struct {
	Raw    interface{} // CURRENCY: float64 元; TIME/INTEGER: int64; DOUBLE: float64; STRING: string
	Pretty string
}

// Encode 按字段类型把用户输入编码成存储表示。
// 空输入（去除首尾空白后为空）一律视为未提交，返回 Absent，
// 包括 STRING 类型——空字符串规范化为"无值"，不写数据行。
// 货币/时长缺失的部分默认为 0（如 "$12." -> 1200 分，"3:" -> 180 秒）。
func Encode(raw string, ftype string) (Encoded, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Encoded{Absent: true}, nil
	}

	switch ftype {
	case models.FieldTypeCurrency:
		parts, empty, verr := splitNum(raw, ".", "$,", "货币格式应为 '元.分'")
		if verr != nil {
			return Encoded{}, verr
		}
		if empty {
			return Encoded{Absent: true}, nil
		}
		v := parts[0]*100 + parts[1]
		return Encoded{IValue: &v}, nil

	case models.FieldTypeTime:
		parts, empty, verr := splitNum(raw, ":", "ms", "时长格式应为 '分:秒'")
		if verr != nil {
			return Encoded{}, verr
		}
		if empty {
			return Encoded{Absent: true}, nil
		}
		v := parts[0]*60 + parts[1]
		return Encoded{IValue: &v}, nil

	case models.FieldTypeInteger:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Encoded{}, &ValidationError{
				Fragment: raw,
				Message:  fmt.Sprintf("%q 不是整数", raw),
			}
		}
		return Encoded{IValue: &v}, nil

	case models.FieldTypeDouble:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Encoded{}, &ValidationError{
				Fragment: raw,
				Message:  fmt.Sprintf("%q 不是数字", raw),
			}
		}
		return Encoded{DValue: &v}, nil

	case models.FieldTypeString:
		s := raw
		return Encoded{SValue: &s}, nil
	}

	return Encoded{}, fmt.Errorf("未知字段类型: %s", ftype)
}

// splitNum 先剔除 filterChars 里的字符，再按 sep 切分校验。
// 至多 2 段，每段必须全为数字，空段默认为 0。
// 剔除后没有剩余内容时 empty 为 true，调用方按未提交处理。
func splitNum(raw, sep, filterChars, partsMessage string) (out [2]int64, empty bool, verr *ValidationError) {
	data := raw
	for _, c := range filterChars {
		data = strings.ReplaceAll(data, string(c), "")
	}
	if data == "" {
		return out, true, nil
	}

	parts := strings.Split(data, sep)
	if len(parts) > 2 {
		return out, false, &ValidationError{
			Fragment:  data,
			Separator: sep,
			Message:   partsMessage,
		}
	}
	for i, part := range parts {
		if part == "" {
			continue // 缺失部分默认为 0
		}
		n, err := strconv.ParseUint(part, 10, 63)
		if err != nil {
			return out, false, &ValidationError{
				Fragment:  part,
				Separator: sep,
				Message:   fmt.Sprintf("%q 不是数字", part),
			}
		}
		out[i] = int64(n)
	}
	return out, false, nil
}

// Decode 把存储表示解码回原始值和展示字符串，是 Encode 的逆操作。
// 值槽与字段类型不匹配（如 CURRENCY 行缺 IValue）返回错误。
func Decode(enc Encoded, ftype string) (Decoded, error) {
	switch ftype {
	case models.FieldTypeCurrency:
		if enc.IValue == nil {
			return Decoded{}, slotMismatch(ftype)
		}
		cents := *enc.IValue
		return Decoded{
			Raw:    float64(cents) / 100,
			Pretty: fmt.Sprintf("$%d.%02d", cents/100, cents%100),
		}, nil

	case models.FieldTypeTime:
		if enc.IValue == nil {
			return Decoded{}, slotMismatch(ftype)
		}
		secs := *enc.IValue
		return Decoded{
			Raw:    secs,
			Pretty: fmt.Sprintf("%d:%02d", secs/60, secs%60),
		}, nil

	case models.FieldTypeInteger:
		if enc.IValue == nil {
			return Decoded{}, slotMismatch(ftype)
		}
		return Decoded{
			Raw:    *enc.IValue,
			Pretty: strconv.FormatInt(*enc.IValue, 10),
		}, nil

	case models.FieldTypeDouble:
		if enc.DValue == nil {
			return Decoded{}, slotMismatch(ftype)
		}
		return Decoded{
			Raw:    *enc.DValue,
			Pretty: strconv.FormatFloat(*enc.DValue, 'f', -1, 64),
		}, nil

	case models.FieldTypeString:
		if enc.SValue == nil {
			return Decoded{}, slotMismatch(ftype)
		}
		return Decoded{
			Raw:    *enc.SValue,
			Pretty: *enc.SValue,
		}, nil
	}

	return Decoded{}, fmt.Errorf("未知字段类型: %s", ftype)
}

// DecodeData 从数据行解码，值槽取自 FieldData
func DecodeData(data *models.FieldData, ftype string) (Decoded, error) {
	return Decode(Encoded{
		IValue: data.IValue,
		DValue: data.DValue,
		SValue: data.SValue,
	}, ftype)
}

func slotMismatch(ftype string) error {
	return fmt.Errorf("数据行的值槽与字段类型 %s 不匹配", ftype)
}
