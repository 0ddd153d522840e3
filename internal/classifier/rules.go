package classifier

// Rules is the data behind the query gate. The classifier itself is just an
// ordered evaluation of these lists, so rulesets can be swapped or trimmed
// without touching pipeline code.
type Rules struct {
	// DenyPatterns reject a query outright, regardless of conversation
	// context.
	DenyPatterns []string

	// ContextTerms mark a conversation turn as in-domain when deciding
	// whether a follow-up has something to stand on.
	ContextTerms []string

	// FollowUpPhrasings identify queries that only make sense relative to
	// an earlier turn.
	FollowUpPhrasings []string

	// Keywords, QuestionPatterns, Prefixes and Suffixes accept a fresh
	// query as in-domain. Affixes match at word boundaries.
	Keywords         []string
	QuestionPatterns []string
	Prefixes         []string
	Suffixes         []string
}

// DefaultRules returns the curated medical ruleset.
func DefaultRules() Rules {
	return Rules{
		DenyPatterns: []string{
			"what is the weather", "what is the capital", "how to cook",
			"what is the time", "what is the date", "who is the president",
			"what is the population", "what is the currency", "how to drive",
		},

		ContextTerms: []string{
			"medical", "health", "disease", "treatment", "symptom",
			"diagnosis", "infection", "bacteria", "virus",
			"microbiology", "cardiology", "neurology", "pathology",
			"immunology", "oncology", "anatomy", "physiology",
			"biochemistry", "genetics", "pharmacology", "epidemiology",
			"virology", "bacteriology", "parasitology", "mycology",
			"diabetes", "cancer", "hypertension", "asthma", "arthritis",
			"stroke", "inflammation", "tumor",
		},

		FollowUpPhrasings: []string{
			"explain in detail", "explain further", "tell me more",
			"can you clarify", "i don't understand", "how does this work",
			"why is this important", "give me examples", "show me",
			"demonstrate", "illustrate", "break down",
			"simplify", "summarize", "recap", "please explain",
			"explain it", "explain this", "explain that",
		},

		Keywords: []string{
			"health", "medical", "medicine", "doctor", "hospital", "clinic",
			"symptom", "disease", "condition", "treatment", "therapy",
			"pain", "fever", "headache", "nausea", "fatigue", "cough",
			"diabetes", "hypertension", "cancer", "heart", "lung", "brain",
			"blood", "infection", "virus", "bacteria", "allergy",
			"mental", "psychology", "psychiatry", "depression", "anxiety",
			"pregnancy", "childbirth", "pediatric", "elderly", "geriatric",
			"surgery", "medication", "prescription", "diagnosis", "prognosis",
			"radiology", "microbiology", "pathology", "immunology", "oncology",
			"cardiology", "neurology", "dermatology", "orthopedics",
			"ophthalmology", "gynecology", "urology", "endocrinology",
			"gastroenterology", "pulmonology", "hematology", "nephrology",
			"rheumatology", "pediatrics", "geriatrics",
			"biology", "biochemistry", "biotechnology", "genetics", "genomics",
			"pharmacology", "toxicology", "epidemiology", "anatomy",
			"physiology", "histology", "cytology", "virology", "bacteriology",
			"parasitology", "mycology",
			"x-ray", "mri", "ct scan", "ultrasound", "biopsy", "endoscopy",
			"colonoscopy", "mammogram", "blood test", "urine test",
			"cardiovascular", "respiratory", "digestive", "nervous",
			"endocrine", "musculoskeletal", "lymphatic", "urinary",
			"reproductive", "immune", "skeletal", "muscular", "circulatory",
			"inflammation", "tumor", "lesion", "ulcer", "abscess", "cyst",
			"fracture", "sprain", "strain", "arthritis", "osteoporosis",
			"asthma", "bronchitis", "pneumonia", "tuberculosis", "emphysema",
			"atherosclerosis", "arrhythmia", "myocardial infarction",
			"stroke", "seizure", "migraine", "epilepsy", "alzheimer",
			"parkinson", "obesity", "thyroid", "adrenal", "pituitary",
			"acute", "chronic", "benign", "malignant", "metastasis",
			"remission", "etiology", "pathogenesis", "morbidity", "mortality",
			"incidence", "prevalence", "epidemic", "pandemic", "outbreak",
		},

		QuestionPatterns: []string{
			"how to treat", "symptoms of", "causes of",
			"treatment for", "medicine for", "pain in", "sick with",
			"diagnosed with", "suffering from",
			"signs of", "indicators of", "risk factors",
			"complications of", "side effects of", "prevention of",
		},

		Prefixes: []string{
			"bio", "cardio", "neuro", "gastro", "hepato", "nephro",
			"osteo", "hemo", "psych", "immuno", "onco", "patho",
			"pharma", "derm",
		},

		Suffixes: []string{
			"itis", "osis", "emia", "oma", "pathy", "algia",
			"ectomy", "plasty", "dynia",
		},
	}
}
