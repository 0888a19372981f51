package payment

import (
	"fmt"
	"strings"
)

// Values accepted for vnp_BankCode. Empty lets the customer choose on the
// gateway page.
const (
	MethodAny      = ""
	MethodVNPayQR  = "VNPAYQR"
	MethodDomestic = "VNBANK"
	MethodIntlCard = "INTCARD"
)

var InstructionMap = map[string][]string{
	MethodAny: {
		"Chọn phương thức thanh toán trên cổng VNPAY",
		"Thanh toán số tiền {{amount}} trước {{expires_at}}",
		"Giữ lại mã giao dịch để đối chiếu khi cần",
	},
	MethodVNPayQR: {
		"Mở ứng dụng ngân hàng hỗ trợ VNPAY-QR",
		"Quét mã QR hiển thị trên cổng thanh toán",
		"Kiểm tra số tiền {{amount}} và xác nhận",
		"Hoàn tất trước {{expires_at}}, sau thời điểm này mã QR hết hạn",
	},
	MethodDomestic: {
		"Chọn ngân hàng phát hành thẻ ATM hoặc tài khoản",
		"Nhập thông tin thẻ và mã OTP do ngân hàng gửi",
		"Xác nhận thanh toán {{amount}} trước {{expires_at}}",
	},
	MethodIntlCard: {
		"Nhập số thẻ, ngày hết hạn và CVV",
		"Xác thực 3D Secure với ngân hàng phát hành",
		"Chờ xác nhận thanh toán {{amount}}",
	},
}

// ValidMethod reports whether code may be sent as vnp_BankCode.
func ValidMethod(code string) bool {
	_, ok := InstructionMap[code]
	return ok
}

func GetInstructions(method string) []string {
	if steps, ok := InstructionMap[method]; ok {
		return steps
	}

	return []string{
		"Làm theo hướng dẫn trên cổng thanh toán VNPAY",
	}
}

type InstructionVars map[string]string

func InjectVariables(
	steps []string,
	vars InstructionVars,
) []string {
	result := make([]string, 0, len(steps))

	for _, step := range steps {
		updated := step
		for key, value := range vars {
			updated = strings.ReplaceAll(
				updated,
				"{{"+key+"}}",
				value,
			)
		}
		result = append(result, updated)
	}

	return result
}

// FormatVND renders an amount the way the instructions show it, e.g. 110.000 ₫.
func FormatVND(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := fmt.Sprintf("%d", amount)

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String() + " ₫"
	}
	return b.String() + " ₫"
}
