// Licensed under the MIT license which can be found in the LICENSE file.

package dpt

// Main group 15 encodes access control data: six BCD digits, four status
// flags and a 4-bit code index.

func encodeAccessData(dp datapoint, value any) ([]byte, error) {
	ad, ok := value.(AccessData)
	if !ok {
		return nil, typeError(dp, value, "AccessData")
	}

	if ad.Code > 999999 || ad.Index > 15 {
		return nil, &RangeError{DPT: dp.name, Value: ad}
	}

	digits := make([]uint8, 6)
	code := ad.Code

	for i := range digits {
		digits[i] = uint8(code % 10)
		code /= 10
	}

	flags := ad.Index & 15

	for i, set := range []bool{ad.Encrypted, ad.Direction, ad.Permission, ad.Error} {
		if set {
			flags |= 1 << (4 + i)
		}
	}

	return []byte{
		digits[5]<<4 | digits[4],
		digits[3]<<4 | digits[2],
		digits[1]<<4 | digits[0],
		flags,
	}, nil
}

func decodeAccessData(dp datapoint, data []byte) (any, error) {
	if len(data) != 4 {
		return nil, lengthError(dp, data, 4)
	}

	var code uint32

	for _, b := range data[:3] {
		hi, lo := b>>4, b&15

		if hi > 9 || lo > 9 {
			return nil, &DecodeError{
				DPT:         dp.name,
				Data:        data,
				Description: "access code digit is not BCD",
			}
		}

		code = code*100 + uint32(hi)*10 + uint32(lo)
	}

	return AccessData{
		Code:       code,
		Error:      data[3]&(1<<7) != 0,
		Permission: data[3]&(1<<6) != 0,
		Direction:  data[3]&(1<<5) != 0,
		Encrypted:  data[3]&(1<<4) != 0,
		Index:      data[3] & 15,
	}, nil
}
