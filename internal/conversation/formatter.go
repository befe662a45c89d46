package conversation

import (
	"fmt"
	"strings"

	"github.com/bluedeem/clinic-ai-platform/internal/booking"
	"github.com/bluedeem/clinic-ai-platform/internal/refdata"
)

// maxReplyRunes clamps LLM-generated replies before they go out.
const maxReplyRunes = 1000

const (
	greetingReply = "أهلاً وسهلاً في عيادتنا! كيف أقدر أساعدك؟ تقدر تسأل عن الأسعار أو مواعيد الأطباء أو تحجز موعد."

	throttleReply = "وصلتنا رسائل كثيرة منك خلال وقت قصير، نرجو الانتظار دقيقة ثم المحاولة مرة أخرى."

	fallbackReply = "عذراً، ما قدرت أفهم طلبك. تقدر تعيد صياغته أو تتصل بالعيادة مباشرة وبنخدمك بكل سرور."

	apologyReply = "عذراً، صار خلل مؤقت عندنا. جرب مرة ثانية بعد قليل."

	cancelledReply = "تم إلغاء الحجز. إذا حبيت تحجز مرة ثانية أنا بالخدمة."
)

var clarifyPrompts = map[string]string{
	EntityDoctor:  "أي دكتور تقصد؟ اذكر اسم الدكتور من فضلك.",
	EntityService: "أي خدمة تقصد؟ اذكر اسم الخدمة من فضلك.",
	EntityBranch:  "أي فرع تقصد؟ اذكر اسم الفرع من فضلك.",
	EntityDate:    "أي يوم تقصد؟ اذكر التاريخ من فضلك.",
}

var bookingPrompts = map[booking.State]string{
	booking.StateName:     "حياك الله! عشان أكمل الحجز، ممكن اسمك الكامل؟",
	booking.StatePhone:    "ممتاز. ممكن رقم جوالك؟ (مثال: 05XXXXXXXX)",
	booking.StateService:  "أي خدمة تحب تحجز؟",
	booking.StateBranch:   "أي فرع يناسبك؟ (اكتب لا إذا ما عندك تفضيل)",
	booking.StateDateTime: "أي يوم ووقت يناسبك؟ (اكتب لا إذا تبغى أقرب موعد متاح)",
}

var bookingReprompts = map[booking.State]string{
	booking.StateName:     "ما وصلني اسم صحيح. ممكن تكتب اسمك الكامل؟",
	booking.StatePhone:    "الرقم غير صحيح. اكتب رقم جوال سعودي بصيغة 05XXXXXXXX.",
	booking.StateService:  "ما لقيت هذي الخدمة عندنا. اكتب اسم الخدمة مرة ثانية.",
	booking.StateBranch:   "ما لقيت هذا الفرع. اكتب اسم الفرع أو لا للتخطي.",
	booking.StateDateTime: "ما فهمت التاريخ. اكتب مثلاً: بكرة، الخميس، أو 2025-07-01.",
}

// Formatter renders decisions and booking steps into final reply text.
// It is a pure function of its inputs: identical inputs produce
// byte-identical output.
type Formatter struct{}

func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format renders a Direct or Clarify decision. Escalate decisions are
// rendered with Escalate after the LLM produced text.
func (f *Formatter) Format(d Decision, snap *refdata.Snapshot) string {
	switch d.Kind {
	case DecisionClarify:
		if p, ok := clarifyPrompts[d.ClarifyField]; ok {
			return p
		}
		return fallbackReply
	case DecisionDirect:
		return f.direct(d, snap)
	default:
		return fallbackReply
	}
}

func (f *Formatter) direct(d Decision, snap *refdata.Snapshot) string {
	switch d.Intent {
	case IntentGreeting:
		return greetingReply
	case IntentAvailabilityQuery:
		return f.availability(d)
	case IntentPriceQuery:
		return f.price(d)
	case IntentInfoQuery:
		return f.info(d, snap)
	default:
		return fallbackReply
	}
}

// availability surfaces the day-specific row verbatim when one exists.
// Without a row it states the recurring weekly schedule only and makes
// no claim about the queried day.
func (f *Formatter) availability(d Decision) string {
	if d.Doctor == nil {
		return fallbackReply
	}
	if d.Availability != nil {
		var b strings.Builder
		if d.Availability.Available {
			fmt.Fprintf(&b, "د. %s متواجد بتاريخ %s.", d.Doctor.Name, d.AvailabilityDate)
		} else {
			fmt.Fprintf(&b, "د. %s غير متواجد بتاريخ %s.", d.Doctor.Name, d.AvailabilityDate)
		}
		if note := strings.TrimSpace(d.Availability.Note); note != "" {
			b.WriteString(" ")
			b.WriteString(note)
		}
		return b.String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "دوام د. %s المعتاد: %s", d.Doctor.Name, d.Doctor.Days)
	if d.Doctor.TimeFrom != "" && d.Doctor.TimeTo != "" {
		fmt.Fprintf(&b, " من %s إلى %s", d.Doctor.TimeFrom, d.Doctor.TimeTo)
	}
	b.WriteString(". للتأكد من تواجده في يوم محدد تواصل مع الفرع.")
	return b.String()
}

func (f *Formatter) price(d Decision) string {
	if d.Service == nil {
		return fallbackReply
	}
	switch {
	case d.Service.PriceSAR != "":
		return fmt.Sprintf("سعر %s: %s ريال.", d.Service.Name, d.Service.PriceSAR)
	case d.Service.PriceRange != "":
		return fmt.Sprintf("سعر %s يتراوح بين %s ريال حسب الحالة.", d.Service.Name, d.Service.PriceRange)
	default:
		return fmt.Sprintf("سعر %s يحدد بعد الاستشارة. تحب تحجز موعد؟", d.Service.Name)
	}
}

func (f *Formatter) info(d Decision, snap *refdata.Snapshot) string {
	if d.Branch != nil {
		return branchLine(*d.Branch)
	}
	if snap == nil || len(snap.Branches()) == 0 {
		return fallbackReply
	}
	lines := make([]string, 0, len(snap.Branches())+1)
	lines = append(lines, "فروعنا:")
	for _, br := range snap.Branches() {
		lines = append(lines, branchLine(br))
	}
	return strings.Join(lines, "\n")
}

func branchLine(br refdata.Branch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", br.Name, br.Address)
	if br.HoursWeekdays != "" {
		fmt.Fprintf(&b, "، الدوام %s", br.HoursWeekdays)
	}
	if br.Phone != "" {
		fmt.Fprintf(&b, "، هاتف %s", br.Phone)
	}
	return b.String()
}

// BookingPrompt renders the prompt for the given pending field; invalid
// selects the re-prompt variant.
func (f *Formatter) BookingPrompt(state booking.State, invalid bool) string {
	if invalid {
		if p, ok := bookingReprompts[state]; ok {
			return p
		}
	}
	if p, ok := bookingPrompts[state]; ok {
		return p
	}
	return fallbackReply
}

// Confirmation renders the final booking summary once a session
// reaches done.
func (f *Formatter) Confirmation(sess *booking.Session, snap *refdata.Snapshot) string {
	var b strings.Builder
	b.WriteString("تم تسجيل حجزك بنجاح!\n")
	fmt.Fprintf(&b, "الاسم: %s\n", sess.Name)
	fmt.Fprintf(&b, "الجوال: %s\n", sess.Phone)
	serviceName := sess.ServiceID
	if snap != nil {
		if svc, ok := snap.Service(sess.ServiceID); ok {
			serviceName = svc.Name
		}
	}
	fmt.Fprintf(&b, "الخدمة: %s\n", serviceName)
	if sess.BranchID != "" && snap != nil {
		if br, ok := snap.Branch(sess.BranchID); ok {
			fmt.Fprintf(&b, "الفرع: %s\n", br.Name)
		}
	}
	if sess.DateTime != "" {
		fmt.Fprintf(&b, "الموعد: %s\n", sess.DateTime)
	}
	b.WriteString("بنتواصل معك لتأكيد الموعد. شكراً لك!")
	return b.String()
}

// Escalate clamps and trims LLM-generated text; empty text degrades to
// the generic fallback.
func (f *Formatter) Escalate(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return fallbackReply
	}
	runes := []rune(text)
	if len(runes) > maxReplyRunes {
		text = strings.TrimSpace(string(runes[:maxReplyRunes]))
	}
	return text
}

// ThrottleNotice is the single notice sent when a user crosses the
// rate limit.
func (f *Formatter) ThrottleNotice() string { return throttleReply }

// GenericFallback is the reply when nothing better can be said.
func (f *Formatter) GenericFallback() string { return fallbackReply }

// Apology is the reply for persistence failures; the session state is
// left untouched so the user can retry.
func (f *Formatter) Apology() string { return apologyReply }

// Cancelled confirms an aborted booking session.
func (f *Formatter) Cancelled() string { return cancelledReply }
