package deviation

import (
	"strings"
)

// Account buckets.
const (
	BucketRevenue  = "revenue"
	BucketCash     = "cash"
	BucketTiming   = "timing"
	BucketClearing = "clearing"
	BucketTax      = "tax"
	BucketRounding = "rounding"
	BucketGeneral  = "general"
)

type bucketRule struct {
	bucket   string
	keywords []string
}

// bucketRules are tried in order; the first keyword hit wins.
var bucketRules = []bucketRule{
	{BucketRevenue, []string{"sales", "revenue", "income"}},
	{BucketCash, []string{"bank", "merchant", "eftpos", "stripe", "fees", "interest"}},
	{BucketTiming, []string{"insurance", "subscription", "subscriptions", "prepaid", "licence", "license", "annual"}},
	{BucketClearing, []string{"payable", "receivable", "deposit", "clearing", "suspense", "control", "intercompany", "loan", "hire purchase", "hp"}},
	{BucketTax, []string{"gst", "vat", "tax", "rwt"}},
	{BucketRounding, []string{"rounding", "round off", "round-off"}},
}

// Bucket classifies an account name by case-insensitive substring match.
func Bucket(accountName string) string {
	n := strings.ToLower(accountName)
	for _, rule := range bucketRules {
		for _, kw := range rule.keywords {
			if strings.Contains(n, kw) {
				return rule.bucket
			}
		}
	}
	return BucketGeneral
}

var subjects = map[string]string{
	"Credit":          "Credit postings",
	"Debit":           "Debit postings",
	"Running_Balance": "Balance movements",
	"GST":             "GST behaviour",
}

var clauses = []struct {
	trigger Trigger
	text    string
}{
	{TriggerDistributionChange, "posting pattern changed versus last year"},
	{TriggerMeanShift, "average level moved materially"},
	{TriggerLargeEffect, "change looks practically large, not just noise"},
	{TriggerHighCV, "volatility is lumpy and irregular"},
	{TriggerLowMeanHighVariance, "small average with outsized variability suggests batching or timing noise"},
	{TriggerMeanMedianGap, "skew suggests outliers or one-offs"},
	{TriggerPearsonSkew, "outliers likely dominate the movement"},
	{TriggerNewActivity, "activity appears newly introduced or restarted"},
	{TriggerSignReversal, "direction flipped (possible reclass/contra entries)"},
}

// Interpret writes "<subject>: <clauses>. <remediation>" for an account.
func Interpret(accountName, dominantMetric string, triggers []Trigger, lang Language) string {
	subject, ok := subjects[dominantMetric]
	if !ok {
		subject = dominantMetric + " behaviour"
	}

	fired := make(map[Trigger]bool, len(triggers))
	for _, t := range triggers {
		fired[t] = true
	}
	var bits []string
	for _, c := range clauses {
		if fired[c.trigger] {
			bits = append(bits, c.text)
		}
	}
	middle := "shows unusual movement versus last year"
	if len(bits) > 0 {
		middle = strings.Join(bits, "; ")
	}

	return subject + ": " + middle + ". " + finish(lang, Bucket(accountName))
}

func finish(lang Language, bucket string) string {
	if text, ok := lang.BucketFinish[bucket]; ok {
		return text
	}
	if text, ok := lang.BucketFinish[BucketGeneral]; ok {
		return text
	}
	return DefaultConfig().Language.BucketFinish[BucketGeneral]
}
