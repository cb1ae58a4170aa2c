package fieldvalue

import (
	"testing"

	"dlireport/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_Currency(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		cents int64
	}{
		{"带货币符号和千分位", "$1,234.56", 123456},
		{"纯数字", "42.00", 4200},
		{"缺少分默认为 0", "$12.", 1200},
		{"缺少元默认为 0", ".99", 99},
		{"只有整数部分", "1234", 123400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := Encode(tt.raw, models.FieldTypeCurrency)
			require.NoError(t, err)
			require.NotNil(t, enc.IValue)
			assert.Equal(t, tt.cents, *enc.IValue)
			assert.Nil(t, enc.DValue)
			assert.Nil(t, enc.SValue)
		})
	}
}

func TestEncode_Currency_Invalid(t *testing.T) {
	// 超过两段
	_, err := Encode("1.2.3", models.FieldTypeCurrency)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ".", verr.Separator)

	// 非数字片段，错误里要指明出错片段
	_, err = Encode("12.ab", models.FieldTypeCurrency)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "ab", verr.Fragment)
	assert.Contains(t, verr.Error(), "ab")
}

func TestEncode_Time(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		secs int64
	}{
		{"分:秒", "3:45", 225},
		{"省略秒默认为 0", "3:", 180},
		{"只有分", "3", 180},
		{"带单位后缀", "12m:30s", 750},
		{"零值", "0:00", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := Encode(tt.raw, models.FieldTypeTime)
			require.NoError(t, err)
			require.NotNil(t, enc.IValue)
			assert.Equal(t, tt.secs, *enc.IValue)
		})
	}
}

func TestEncode_Time_Invalid(t *testing.T) {
	var verr *ValidationError
	_, err := Encode("1:2:3", models.FieldTypeTime)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ":", verr.Separator)

	_, err = Encode("x:30", models.FieldTypeTime)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "x", verr.Fragment)
}

func TestEncode_NumericAndString(t *testing.T) {
	enc, err := Encode("42", models.FieldTypeInteger)
	require.NoError(t, err)
	assert.Equal(t, int64(42), *enc.IValue)

	_, err = Encode("4.2", models.FieldTypeInteger)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	enc, err = Encode("3.14159", models.FieldTypeDouble)
	require.NoError(t, err)
	assert.Equal(t, 3.14159, *enc.DValue)

	_, err = Encode("abc", models.FieldTypeDouble)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "abc", verr.Fragment)

	enc, err = Encode("一切正常", models.FieldTypeString)
	require.NoError(t, err)
	assert.Equal(t, "一切正常", *enc.SValue)
}

func TestEncode_EmptyIsAbsent(t *testing.T) {
	// 空输入规范化为"无值"，不写数据行；对所有类型一致
	for _, ftype := range models.GetFieldTypes() {
		enc, err := Encode("", ftype)
		require.NoError(t, err, ftype)
		assert.True(t, enc.Absent, ftype)
	}

	// 只剩过滤字符的输入同样视为无值
	enc, err := Encode("$,", models.FieldTypeCurrency)
	require.NoError(t, err)
	assert.True(t, enc.Absent)
}

func TestDecode_RoundTrip(t *testing.T) {
	// 货币往返：编码后解码应得到规范化的 $D.CC
	enc, err := Encode("$1,234.56", models.FieldTypeCurrency)
	require.NoError(t, err)
	dec, err := Decode(enc, models.FieldTypeCurrency)
	require.NoError(t, err)
	assert.Equal(t, "$1234.56", dec.Pretty)
	assert.InDelta(t, 1234.56, dec.Raw.(float64), 0.01)

	// 时长往返：总秒数不变，秒补零
	enc, err = Encode("3:45", models.FieldTypeTime)
	require.NoError(t, err)
	dec, err = Decode(enc, models.FieldTypeTime)
	require.NoError(t, err)
	assert.Equal(t, "3:45", dec.Pretty)
	assert.Equal(t, int64(225), dec.Raw)

	enc, err = Encode("10:05", models.FieldTypeTime)
	require.NoError(t, err)
	dec, err = Decode(enc, models.FieldTypeTime)
	require.NoError(t, err)
	assert.Equal(t, "10:05", dec.Pretty)
}

func TestDecode_RoundTrip_AllCurrencyCents(t *testing.T) {
	// 分位 0-99 全量往返，保证补零格式正确
	for cents := int64(0); cents < 100; cents++ {
		v := 500*100 + cents
		dec, err := Decode(Encoded{IValue: &v}, models.FieldTypeCurrency)
		require.NoError(t, err)
		reenc, err := Encode(dec.Pretty, models.FieldTypeCurrency)
		require.NoError(t, err)
		assert.Equal(t, v, *reenc.IValue)
	}
}

func TestDecode_SlotMismatch(t *testing.T) {
	// 值槽与类型不符必须报错，而不是静默给零值
	_, err := Decode(Encoded{}, models.FieldTypeCurrency)
	assert.Error(t, err)

	s := "text"
	_, err = Decode(Encoded{SValue: &s}, models.FieldTypeInteger)
	assert.Error(t, err)
}

func TestDecodeData(t *testing.T) {
	v := int64(123456)
	data := &models.FieldData{DS: "2024-03-15", IValue: &v}
	dec, err := DecodeData(data, models.FieldTypeCurrency)
	require.NoError(t, err)
	assert.Equal(t, "$1234.56", dec.Pretty)
}
