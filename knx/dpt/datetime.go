// Licensed under the MIT license which can be found in the LICENSE file.

package dpt

// Main group 10 encodes a time of day together with an optional day of the
// week.

func encodeTimeOfDay(dp datapoint, value any) ([]byte, error) {
	t, ok := value.(TimeOfDay)
	if !ok {
		return nil, typeError(dp, value, "TimeOfDay")
	}

	if t.Day > 7 || t.Hour > 23 || t.Minutes > 59 || t.Seconds > 59 {
		return nil, &RangeError{DPT: dp.name, Value: t}
	}

	return []byte{t.Day<<5 | t.Hour, t.Minutes, t.Seconds}, nil
}

func decodeTimeOfDay(dp datapoint, data []byte) (any, error) {
	if len(data) != 3 {
		return nil, lengthError(dp, data, 3)
	}

	t := TimeOfDay{
		Day:     data[0] >> 5,
		Hour:    data[0] & 31,
		Minutes: data[1] & 63,
		Seconds: data[2] & 63,
	}

	if t.Hour > 23 || t.Minutes > 59 || t.Seconds > 59 {
		return nil, &DecodeError{
			DPT:         dp.name,
			Data:        data,
			Description: "time of day is out of range",
		}
	}

	return t, nil
}

// Main group 11 encodes a date. The year is transmitted as two digits; the
// century boundary lies between 2089 and 1990.

func encodeDate(dp datapoint, value any) ([]byte, error) {
	d, ok := value.(Date)
	if !ok {
		return nil, typeError(dp, value, "Date")
	}

	if d.Day < 1 || d.Day > 31 || d.Month < 1 || d.Month > 12 ||
		d.Year < 1990 || d.Year > 2089 {
		return nil, &RangeError{DPT: dp.name, Value: d}
	}

	return []byte{d.Day, d.Month, uint8(d.Year % 100)}, nil
}

func decodeDate(dp datapoint, data []byte) (any, error) {
	if len(data) != 3 {
		return nil, lengthError(dp, data, 3)
	}

	d := Date{
		Day:   data[0] & 31,
		Month: data[1] & 15,
	}

	year := data[2] & 127

	if year >= 90 {
		d.Year = 1900 + uint16(year)
	} else {
		d.Year = 2000 + uint16(year)
	}

	if d.Day < 1 || d.Month < 1 || d.Month > 12 {
		return nil, &DecodeError{
			DPT:         dp.name,
			Data:        data,
			Description: "date is out of range",
		}
	}

	return d, nil
}
